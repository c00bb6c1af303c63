package validators

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-fleet/internal/models"
)

func TestStruct_Valid(t *testing.T) {
	b := models.Bike{Make: "Honda", LicenseNumber: "CA 1", Status: models.BikeActive}
	assert.NoError(t, Struct(b))
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	b := models.Bike{Status: "stolen"}
	err := Struct(b)
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]string{}
	for _, v := range verrs {
		fields[v.Field] = v.Tag
	}
	assert.Equal(t, "required", fields["Make"])
	assert.Equal(t, "required", fields["LicenseNumber"])
	assert.Equal(t, "oneof", fields["Status"])
	assert.Contains(t, err.Error(), "Status must be one of: active maintenance idle")
}

func TestStruct_NestedTracker(t *testing.T) {
	b := models.Bike{Make: "Honda", LicenseNumber: "CA 1", Status: models.BikeIdle, Tracker: &models.Tracker{Battery: 120}}
	err := Struct(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Battery must be at most 100")
}

func TestStruct_PaymentNegativeAmountAllowed(t *testing.T) {
	p := models.Payment{DriverID: "drv-1", Amount: -400, Type: models.PaymentRental, WeekNumber: 3}
	assert.NoError(t, Struct(p))

	p.WeekNumber = 6
	assert.Error(t, Struct(p))
}

func TestStruct_DriverEmail(t *testing.T) {
	d := models.Driver{Name: "Zola", IDNumber: "9001015800087", Email: "not-an-email"}
	err := Struct(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email format")
}
