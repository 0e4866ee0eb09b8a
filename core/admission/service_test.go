package admission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
	"github.com/rudradrivingschool/rudra-driving-school/storage/database/inmem"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

type fixture struct {
	svc      admission.Service
	repo     admission.Repository
	rides    ride.Repository
	payments payment.Repository
	logger   *testutil.Logger
}

func setup(t *testing.T, seeder ...admission.AdvanceSeeder) fixture {
	t.Helper()
	db := inmemdb.Open()
	f := fixture{
		repo:     inmemdb.NewAdmissionRepository(db),
		rides:    inmemdb.NewRideRepository(db),
		payments: inmemdb.NewPaymentRepository(db),
		logger:   testutil.NewLogger(),
	}
	var advances admission.AdvanceSeeder = payment.NewService(f.payments, f.repo)
	if len(seeder) > 0 {
		advances = seeder[0]
	}
	f.svc = admission.NewService(admission.Deps{
		Repo:     f.repo,
		Rides:    f.rides,
		Payments: f.payments,
		Advances: advances,
		Logger:   f.logger,
	})
	return f
}

type failingSeeder struct{}

func (failingSeeder) SeedAdvance(context.Context, string, int64, time.Time) error {
	return errors.New("payments store unavailable")
}

func newAdmission(name, duration string, fees, advance int64) admission.NewAdmission {
	return admission.NewAdmission{
		StudentName:   name,
		Contact:       "9800000000",
		Sex:           "M",
		LicenseType:   admission.LicenseTypeNA,
		Duration:      duration,
		Fees:          fees,
		AdvanceAmount: advance,
	}
}

func TestTotalRidesFromDuration(t *testing.T) {
	tests := []struct {
		duration string
		want     int
	}{
		{"15 rides/month", 15},
		{"30 rides", 30},
		{"8 rides", 8},
		{"1 ride", 8},
		{"20 rides", 8},
		{"monthly", 8},
		{"", 8},
	}
	for _, tt := range tests {
		t.Run(tt.duration, func(t *testing.T) {
			assert.Equal(t, tt.want, admission.TotalRidesFromDuration(tt.duration))
		})
	}
}

func Test_service_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the ride package and seeds the advance", func(t *testing.T) {
		f := setup(t)
		adm, err := f.svc.Create(ctx, newAdmission("Asha Rai", "15 rides/month", 12000, 3000))
		require.NoError(t, err)

		assert.NotEmpty(t, adm.ID)
		assert.Equal(t, 15, adm.TotalRides)
		assert.Equal(t, 0, adm.RidesCompleted)
		assert.Equal(t, admission.StatusActive, adm.Status)
		assert.Equal(t, core.Today(), adm.StartDate)

		payments, err := f.payments.QueryPayments(ctx, &payment.QueryFilter{AdmissionID: adm.ID})
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, payment.TypeAdvance, payments[0].PaymentType)
		assert.Equal(t, int64(3000), payments[0].Amount)
	})

	t.Run("no advance, no payment", func(t *testing.T) {
		f := setup(t)
		adm, err := f.svc.Create(ctx, newAdmission("Bikash Thapa", "8 rides", 8000, 0))
		require.NoError(t, err)

		n, err := f.payments.CountByAdmission(ctx, adm.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("advance failure keeps the admission", func(t *testing.T) {
		f := setup(t, failingSeeder{})
		adm, err := f.svc.Create(ctx, newAdmission("Chandra Gurung", "30 rides", 20000, 5000))
		require.Error(t, err)
		assert.Equal(t, admission.ErrAdvanceNotRecorded, pkgerrors.Cause(err))
		assert.NotEmpty(t, adm.ID)

		stored, err := f.repo.GetAdmission(ctx, adm.ID)
		require.NoError(t, err)
		assert.Equal(t, "Chandra Gurung", stored.StudentName)
		assert.Len(t, f.logger.Logs("error"), 1)
	})
}

func Test_service_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	adm, err := f.svc.Create(ctx, newAdmission("Deepa Shah", "8 rides", 8000, 0))
	require.NoError(t, err)
	_, err = f.repo.UpdateRideProgress(ctx, adm.ID, 3, false)
	require.NoError(t, err)

	ua := admission.UpdateAdmission{
		NewAdmission: newAdmission("Deepa K. Shah", "15 rides", 9000, 0),
		Status:       admission.StatusTerminated,
	}
	updated, err := f.svc.Update(ctx, adm.ID, ua)
	require.NoError(t, err)

	assert.Equal(t, "Deepa K. Shah", updated.StudentName)
	assert.Equal(t, 15, updated.TotalRides)
	assert.Equal(t, admission.StatusTerminated, updated.Status)
	assert.Equal(t, 3, updated.RidesCompleted, "progress is not editable")
	assert.Equal(t, adm.StartDate, updated.StartDate)

	_, err = f.svc.Update(ctx, "lol", ua)
	assert.Equal(t, admission.ErrNotFound, pkgerrors.Cause(err))
}

func Test_service_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	bare := testutil.CreateAdmission(t, f.repo, "Eshan", 8, 8000)
	busy := testutil.CreateAdmission(t, f.repo, "Fatima", 8, 8000)
	testutil.CreateRide(t, f.rides, busy.ID, busy.StudentName, "", "2024-03-01", ride.StatusCompleted)
	testutil.CreatePayment(t, f.payments, busy.ID, 2000, payment.TypeInstallment1, testutil.Date(2024, 3, 1))
	// unlinked rides of the same name survive a cascade
	legacy := testutil.CreateRide(t, f.rides, "", busy.StudentName, "", "2024-02-01", ride.StatusCompleted)

	tests := []struct {
		name    string
		id      string
		cascade bool
		check   func(t *testing.T, err error)
	}{
		{
			name: "unknown",
			id:   "lol",
			check: func(t *testing.T, err error) {
				assert.Equal(t, admission.ErrNotFound, pkgerrors.Cause(err))
			},
		},
		{
			name: "has dependents",
			id:   busy.ID,
			check: func(t *testing.T, err error) {
				require.True(t, core.IsValidationError(err))
				vErr := pkgerrors.Cause(err).(*core.ValidationError)
				assert.Equal(t, admission.ErrHasDependents, vErr.Err)
				assert.Equal(t, "cascade", vErr.Fields[0].Field)
			},
		},
		{
			name: "no dependents",
			id:   bare.ID,
			check: func(t *testing.T, err error) {
				require.NoError(t, err)
				_, err = f.repo.GetAdmission(ctx, bare.ID)
				assert.Equal(t, admission.ErrNotFound, err)
			},
		},
		{
			name:    "cascade",
			id:      busy.ID,
			cascade: true,
			check: func(t *testing.T, err error) {
				require.NoError(t, err)
				n, err := f.rides.CountByAdmission(ctx, busy.ID)
				require.NoError(t, err)
				assert.Zero(t, n)
				n, err = f.payments.CountByAdmission(ctx, busy.ID)
				require.NoError(t, err)
				assert.Zero(t, n)
				_, err = f.rides.GetRide(ctx, legacy.ID)
				assert.NoError(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.svc.Delete(ctx, tt.id, tt.cascade))
		})
	}
}

func Test_service_ClientIDsByName(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	now := time.Now()
	old := testutil.CreateAdmission(t, f.repo, "Gita", 8, 8000, now.Add(-48*time.Hour))
	newer := testutil.CreateAdmission(t, f.repo, "Gita", 15, 12000, now)
	hari := testutil.CreateAdmission(t, f.repo, "Hari", 8, 8000, now.Add(-time.Hour))

	ids, err := f.svc.ClientIDsByName(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Gita": newer.ID, "Hari": hari.ID}, ids)
	assert.NotEqual(t, old.ID, ids["Gita"])
}

func Test_service_ActiveClientNames(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	testutil.CreateAdmission(t, f.repo, "Kiran", 8, 8000)
	testutil.CreateAdmission(t, f.repo, "Anil", 8, 8000)
	done := testutil.CreateAdmission(t, f.repo, "Manoj", 8, 8000)
	_, err := f.repo.UpdateRideProgress(ctx, done.ID, 8, true)
	require.NoError(t, err)

	names, err := f.svc.ActiveClientNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anil", "Kiran"}, names)
}

func TestNewAdmission_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	valid := newAdmission("Nabin", "8 rides", 8000, 1000)
	tests := []struct {
		name    string
		modify  func(na *admission.NewAdmission)
		wantErr bool
	}{
		{name: "valid", modify: func(na *admission.NewAdmission) {}},
		{name: "blank name", modify: func(na *admission.NewAdmission) { na.StudentName = "   " }, wantErr: true},
		{name: "no fees", modify: func(na *admission.NewAdmission) { na.Fees = 0 }, wantErr: true},
		{name: "advance above fees", modify: func(na *admission.NewAdmission) { na.AdvanceAmount = 9000 }, wantErr: true},
		{name: "bad email", modify: func(na *admission.NewAdmission) { na.Email = "lol" }, wantErr: true},
		{
			name:    "licence paperwork missing",
			modify:  func(na *admission.NewAdmission) { na.LicenseType = "Two Wheeler" },
			wantErr: true,
		},
		{
			name: "licence paperwork given",
			modify: func(na *admission.NewAdmission) {
				na.LicenseType = "Two Wheeler"
				na.LearningLicense = "Yes"
				na.DrivingLicense = "No"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := valid
			tt.modify(&na)
			err := na.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
