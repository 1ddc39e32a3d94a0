package mockbackend

import (
	"fmt"

	"github.com/kroma-labs/rainlogger-go/auth"
	"github.com/kroma-labs/rainlogger-go/rainlog"
)

// SeedLocation is the location of the seeded logs.
const SeedLocation = "Castraz"

// seedLogs is January 2026 in Castraz. The 14th is an estimate.
var seedLogs = []rainlog.NewRainLog{
	{Date: "2026-01-03", Measurement: 4.5, Location: SeedLocation, RealReading: true},
	{Date: "2026-01-03", Measurement: 1.25, Location: SeedLocation, RealReading: true},
	{Date: "2026-01-07", Measurement: 12.8, Location: SeedLocation, RealReading: true},
	{Date: "2026-01-14", Measurement: 3, Location: SeedLocation, RealReading: false},
	{Date: "2026-01-21", Measurement: 7.35, Location: SeedLocation, RealReading: true},
	{Date: "2026-01-30", Measurement: 0.4, Location: SeedLocation, RealReading: true},
}

// Seed adds the admin account and the sample logs.
func Seed(s *Store, adminEmail, adminPassword string) (auth.User, error) {
	admin, err := s.AddUser(auth.User{
		Name:        "Admin",
		Email:       adminEmail,
		Role:        auth.RoleAdmin,
		Permissions: []string{"read", "write", "delete"},
	}, adminPassword)
	if err != nil {
		return auth.User{}, fmt.Errorf("seed admin: %w", err)
	}

	for _, in := range seedLogs {
		s.CreateRainLog(in, admin.Name)
	}
	return admin, nil
}
