package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workmatch/internal/domain"
)

func TestNewPair(t *testing.T) {
	t.Run("normalizes order", func(t *testing.T) {
		p1, err := domain.NewPair(9, 4)
		require.NoError(t, err)
		p2, err := domain.NewPair(4, 9)
		require.NoError(t, err)

		assert.Equal(t, p1, p2)
		assert.Equal(t, int64(4), p1.Low())
		assert.Equal(t, int64(9), p1.High())
	})

	t.Run("rejects self pair", func(t *testing.T) {
		_, err := domain.NewPair(3, 3)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects non-positive ids", func(t *testing.T) {
		_, err := domain.NewPair(0, 3)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("other participant", func(t *testing.T) {
		p, _ := domain.NewPair(1, 2)
		assert.Equal(t, int64(2), p.Other(1))
		assert.Equal(t, int64(1), p.Other(2))
		assert.True(t, p.Contains(2))
		assert.False(t, p.Contains(5))
	})
}

func TestRole(t *testing.T) {
	assert.True(t, domain.RoleClient.Valid())
	assert.False(t, domain.Role("admin").Valid())
	assert.Equal(t, domain.RoleSpecialist, domain.RoleClient.Opposite())
	assert.Equal(t, domain.RoleClient, domain.RoleSpecialist.Opposite())
}

func TestTaxonomy(t *testing.T) {
	assert.Len(t, domain.Specialties, 14)
	assert.True(t, domain.IsSpecialty("plumber"))
	assert.False(t, domain.IsSpecialty("Astronaut"))

	assert.True(t, domain.IsDistrictOf("Mount Lebanon", "Metn"))
	assert.False(t, domain.IsDistrictOf("Beirut", "Metn"))
	assert.False(t, domain.IsDistrictOf("Atlantis", "Beirut"))
}

func TestMessageIsReadBy(t *testing.T) {
	m := &domain.Message{ReadBy: []int64{1, 7}}
	assert.True(t, m.IsReadBy(7))
	assert.False(t, m.IsReadBy(2))
}
