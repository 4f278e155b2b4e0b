package domain

import "strings"

// Specialties lists the trades a specialist can register under.
var Specialties = []string{
	"Civil Engineer",
	"Architect",
	"Mason",
	"Blacksmith",
	"Glass Specialist",
	"Plumber",
	"Painter",
	"Aluminum Frame Specialist",
	"Carpenter",
	"Tiler",
	"Waterproofing Specialist",
	"Electrician",
	"Stone Cladding Specialist",
	"HVAC Technician",
}

// Districts maps each governorate to its districts.
var Districts = map[string][]string{
	"Beirut":         {"Beirut"},
	"Mount Lebanon":  {"Baabda", "Aley", "Chouf", "Keserwan", "Metn", "Jbeil"},
	"North":          {"Tripoli", "Akkar", "Bcharre", "Koura", "Miniyeh-Danniyeh", "Zgharta", "Batroun"},
	"Akkar":          {"Akkar"},
	"Beqaa":          {"Zahle", "West Beqaa", "Rashaya"},
	"Baalbek-Hermel": {"Baalbek", "Hermel"},
	"South":          {"Saida", "Tyre", "Jezzine"},
	"Nabatieh":       {"Nabatieh", "Marjeyoun", "Hasbaya", "Bint Jbeil"},
}

// IsSpecialty reports whether name is a known specialty. Matching ignores case.
func IsSpecialty(name string) bool {
	for _, s := range Specialties {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// IsDistrictOf reports whether district belongs to governorate.
func IsDistrictOf(governorate, district string) bool {
	for _, d := range Districts[governorate] {
		if d == district {
			return true
		}
	}
	return false
}
