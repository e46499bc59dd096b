package domain

type Availability string

const (
	AvailabilityOnline  Availability = "ONLINE"
	AvailabilityAway    Availability = "AWAY"
	AvailabilityOffline Availability = "OFFLINE"
)

type AdminWorkload struct {
	AdminID      string
	CurrentLoad  int
	MaxLoad      int
	Specialties  []string
	Availability Availability
}

func (a *AdminWorkload) HasCapacity() bool {
	return a.Availability == AvailabilityOnline && a.CurrentLoad < a.MaxLoad
}

func (a *AdminWorkload) HasSpecialty(specialty string) bool {
	for _, s := range a.Specialties {
		if s == specialty {
			return true
		}
	}
	return false
}
