package config

type GateConfig interface {
	GetTrialWarningDays() int
	GetHomeRoutes() map[string]string
}

type Gate struct{}

var _ GateConfig = Gate{}

func (Gate) GetTrialWarningDays() int {
	return 5
}

// GetHomeRoutes maps a role to the area a signed-in user of that role lands on.
func (Gate) GetHomeRoutes() map[string]string {
	return map[string]string{
		"admin":   "/admin",
		"cashier": "/cashier",
	}
}
