// Package seed populates a fresh deployment with demo data: the four
// reference sensors, a handful of generated citizens, and a few example
// reports. Seeding is idempotent per deployment.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/namangaonkar/civiclens/internal/civic"
	"github.com/namangaonkar/civiclens/internal/iot"
)

// fakerSeed pins the generated users so repeated deployments of the
// same build produce the same demo citizens.
const fakerSeed = 11

const demoUserCount = 5

// Store is the subset of persistence the seeder writes through.
type Store interface {
	PutUser(ctx context.Context, u *civic.User) error
	Insert(ctx context.Context, r *civic.Report) error
	InsertSensor(ctx context.Context, sensor *iot.Sensor) error
	ListSensors(ctx context.Context, typ iot.Type) ([]*iot.Sensor, error)
}

// Run seeds demo data unless sensors already exist, in which case it is
// a no-op. It returns whether anything was written.
func Run(ctx context.Context, store Store, logger log.Logger) (bool, error) {
	if logger == nil {
		logger = log.Nop()
	}

	existing, err := store.ListSensors(ctx, "")
	if err != nil {
		return false, fmt.Errorf("check existing sensors: %w", err)
	}
	if len(existing) > 0 {
		logger.Info(ctx, "demo data already present, skipping seed", "sensors", len(existing))
		return false, nil
	}

	for _, s := range demoSensors() {
		if err := store.InsertSensor(ctx, s); err != nil {
			return false, fmt.Errorf("insert sensor %s: %w", s.SensorID, err)
		}
	}

	users, err := seedUsers(ctx, store)
	if err != nil {
		return false, err
	}

	for i, r := range demoReports() {
		r.ReporterID = users[i%len(users)].ID
		if err := store.Insert(ctx, r); err != nil {
			return false, fmt.Errorf("insert report %q: %w", r.Title, err)
		}
	}

	logger.Info(ctx, "demo data seeded", "sensors", 4, "users", len(users))
	return true, nil
}

func seedUsers(ctx context.Context, store Store) ([]*civic.User, error) {
	faker := gofakeit.New(fakerSeed)

	users := make([]*civic.User, 0, demoUserCount)
	for i := 0; i < demoUserCount; i++ {
		u := &civic.User{
			ID:    ulid.Make().String(),
			Name:  faker.Name(),
			Email: faker.Email(),
		}
		if err := store.PutUser(ctx, u); err != nil {
			return nil, fmt.Errorf("insert user %s: %w", u.Name, err)
		}
		users = append(users, u)
	}
	return users, nil
}

func demoSensors() []*iot.Sensor {
	now := time.Now()
	return []*iot.Sensor{
		{
			ID:           ulid.Make().String(),
			SensorID:     "AQ001",
			Type:         iot.TypeAirQuality,
			Location:     iot.Site{Lat: 40.7128, Lng: -74.0060, Name: "Central Park"},
			CurrentValue: 45,
			Unit:         "AQI",
			Threshold:    iot.Threshold{Min: 0, Max: 50},
			Status:       iot.StatusNormal,
			LastUpdated:  now,
		},
		{
			ID:           ulid.Make().String(),
			SensorID:     "NOISE001",
			Type:         iot.TypeNoise,
			Location:     iot.Site{Lat: 40.7589, Lng: -73.9851, Name: "Times Square"},
			CurrentValue: 75,
			Unit:         "dB",
			Threshold:    iot.Threshold{Min: 0, Max: 70},
			Status:       iot.StatusWarning,
			LastUpdated:  now,
		},
		{
			ID:           ulid.Make().String(),
			SensorID:     "WATER001",
			Type:         iot.TypeWaterPressure,
			Location:     iot.Site{Lat: 40.7505, Lng: -73.9934, Name: "Midtown"},
			CurrentValue: 35,
			Unit:         "PSI",
			Threshold:    iot.Threshold{Min: 30, Max: 80},
			Status:       iot.StatusNormal,
			LastUpdated:  now,
		},
		{
			ID:           ulid.Make().String(),
			SensorID:     "TEMP001",
			Type:         iot.TypeTemperature,
			Location:     iot.Site{Lat: 40.7831, Lng: -73.9712, Name: "Upper East Side"},
			CurrentValue: 22,
			Unit:         "°C",
			Threshold:    iot.Threshold{Min: -10, Max: 35},
			Status:       iot.StatusNormal,
			LastUpdated:  now,
		},
	}
}

func demoReports() []*civic.Report {
	now := time.Now()
	return []*civic.Report{
		{
			ID:          ulid.Make().String(),
			Title:       "Pothole on Main Street",
			Description: "Large pothole causing traffic issues near the intersection of Main St and 5th Ave",
			Category:    "Infrastructure",
			Priority:    civic.PriorityHigh,
			Status:      civic.StatusOpen,
			Location:    civic.Location{Lat: 40.7580, Lng: -73.9855, Address: "Main St & 5th Ave"},
			Upvotes:     12,
			Comments:    []civic.Comment{},
			Tags:        []string{"pothole", "traffic", "urgent"},
			CreatedAt:   now,
		},
		{
			ID:          ulid.Make().String(),
			Title:       "Broken Streetlight",
			Description: "Streetlight has been out for 3 days, creating safety concerns for pedestrians",
			Category:    "Safety",
			Priority:    civic.PriorityMedium,
			Status:      civic.StatusInProgress,
			Location:    civic.Location{Lat: 40.7614, Lng: -73.9776, Address: "Broadway & 42nd St"},
			Upvotes:     8,
			Comments:    []civic.Comment{},
			Tags:        []string{"streetlight", "safety", "pedestrian"},
			CreatedAt:   now,
		},
		{
			ID:          ulid.Make().String(),
			Title:       "Graffiti on Public Building",
			Description: "Vandalism on the side of the community center building",
			Category:    "Environment",
			Priority:    civic.PriorityLow,
			Status:      civic.StatusResolved,
			Location:    civic.Location{Lat: 40.7505, Lng: -73.9934, Address: "Community Center"},
			Upvotes:     3,
			Comments:    []civic.Comment{},
			Tags:        []string{"graffiti", "vandalism", "cleanup"},
			CreatedAt:   now,
		},
	}
}
