package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/models"
)

var makes = []struct{ Make, Model string }{
	{"Honda", "Ace 125"},
	{"Big Boy", "Zongshen 150"},
	{"Suzuki", "GN 125"},
	{"Yamaha", "YBR 125"},
	{"TVS", "HLX 150"},
}

var firstNames = []string{"Sipho", "Thabo", "Lerato", "Ayanda", "Kagiso", "Zanele", "Mpho", "Nomsa", "Bongani", "Palesa"}
var lastNames = []string{"Dlamini", "Nkosi", "Mokoena", "Ndlovu", "Khumalo", "Mahlangu", "Botha", "Naidoo"}

var workshops = []models.Workshop{
	{Name: "Moto Medics", Phone: "011 234 5678", Specialty: "Engines", Rating: 4.5},
	{Name: "Two Wheel Clinic", Phone: "021 765 4321", Specialty: "Electrical", Rating: 4.1},
}

// client talks to the console API with a session token.
type client struct {
	baseURL string
	fleetID string
	token   string
	http    *http.Client
}

func newClient(baseURL, fleetID string) *client {
	return &client{baseURL: baseURL, fleetID: fleetID, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *client) post(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST %s failed with status: %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// login opens an admin session for the seeded fleet.
func (c *client) login(passcode string) error {
	var resp models.SessionResponse
	err := c.post("/session", models.SessionRequest{Mode: models.ModeAdmin, FleetID: c.fleetID, Passcode: passcode}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *client) create(collection string, body, out any) error {
	return c.post("/fleets/"+c.fleetID+"/"+collection, body, out)
}

func randomBike(i int, now time.Time) models.Bike {
	m := makes[rand.Intn(len(makes))]
	statuses := []models.BikeStatus{models.BikeActive, models.BikeActive, models.BikeActive, models.BikeIdle, models.BikeMaintenance}
	return models.Bike{
		Make:              m.Make,
		Model:             m.Model,
		Year:              2019 + rand.Intn(6),
		LicenseNumber:     fmt.Sprintf("GP %03d-%03d", rand.Intn(1000), i+1),
		Status:            statuses[rand.Intn(len(statuses))],
		LicenseDiskExpiry: models.DateOf(now.AddDate(0, rand.Intn(14)-2, 0)),
	}
}

func randomDriver(now time.Time) models.Driver {
	return models.Driver{
		Name:          firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))],
		IDNumber:      fmt.Sprintf("%013d", rand.Int63n(1e13)),
		Phone:         fmt.Sprintf("08%d %03d %04d", rand.Intn(4)+1, rand.Intn(1000), rand.Intn(10000)),
		LicenseExpiry: models.DateOf(now.AddDate(rand.Intn(3), rand.Intn(12)-1, 0)),
		PDPExpiry:     models.DateOf(now.AddDate(0, rand.Intn(18)-1, 0)),
	}
}

// weeklyPayments returns the rental payments a driver made so far this month.
// Some drivers skip weeks so the dashboard shows arrears.
func weeklyPayments(driverID string, now time.Time, target float64) []models.Payment {
	var out []models.Payment
	for day := 1; day <= now.Day(); day += 7 {
		if rand.Float64() < 0.2 {
			continue
		}
		amount := target
		if rand.Float64() < 0.15 {
			amount = target / 2
		}
		out = append(out, models.Payment{
			DriverID: driverID,
			Amount:   amount,
			Date:     models.NewDate(now.Year(), now.Month(), day),
			Type:     models.PaymentRental,
		})
	}
	return out
}

// seed creates bikes, one driver per bike and this month's payments.
func seed(c *client, size int, target float64, now time.Time) (int, error) {
	created := 0
	for _, ws := range workshops {
		if err := c.create("workshops", ws, nil); err != nil {
			return created, err
		}
		created++
	}

	for i := 0; i < size; i++ {
		var bike models.Bike
		if err := c.create("bikes", randomBike(i, now), &bike); err != nil {
			log.WithError(err).Error("Failed to create bike")
			continue
		}
		var driver models.Driver
		if err := c.create("drivers", randomDriver(now), &driver); err != nil {
			log.WithError(err).Error("Failed to create driver")
			continue
		}
		created += 2

		bike.AssignedDriverID = driver.ID
		if err := c.put("bikes/"+bike.ID, bike); err != nil {
			log.WithError(err).WithField("bike_id", bike.ID).Warn("Failed to assign driver")
		}

		for _, p := range weeklyPayments(driver.ID, now, target) {
			if err := c.create("payments", p, nil); err != nil {
				log.WithError(err).Error("Failed to create payment")
				continue
			}
			created++
		}
		log.WithFields(log.Fields{
			"bike_id":   bike.ID,
			"driver_id": driver.ID,
			"driver":    driver.Name,
		}).Info("Seeded rental")
	}
	return created, nil
}

func (c *client) put(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, c.baseURL+"/fleets/"+c.fleetID+"/"+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PUT %s failed with status: %d", path, resp.StatusCode)
	}
	return nil
}

func main() {
	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	fleetID := os.Getenv("FLEET_ID")
	if fleetID == "" {
		fleetID = "main"
	}

	target := 650.0
	if v := os.Getenv("WEEKLY_TARGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			target = f
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"fleet":      fleetID,
	}).Info("Seeding demo fleet")

	passcode := os.Getenv("ADMIN_PASSCODE")
	if passcode == "" {
		passcode = config.DefaultAdminPasscode
	}

	c := newClient(apiURL, fleetID)
	if err := c.login(passcode); err != nil {
		log.WithError(err).Fatal("Failed to open admin session")
	}

	created, err := seed(c, fleetSize, target, time.Now())
	if err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("records", created).Info("Demo fleet seeded")
}
