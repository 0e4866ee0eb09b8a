package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/rudradrivingschool/rudra-driving-school/apps/api/echo"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
	"github.com/rudradrivingschool/rudra-driving-school/core/driver"
	"github.com/rudradrivingschool/rudra-driving-school/core/ledger"
	"github.com/rudradrivingschool/rudra-driving-school/core/payment"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
	"github.com/rudradrivingschool/rudra-driving-school/tests"
)

const pwd = "kathmandu#42"

func Test_home(t *testing.T) {
	a := newApp(t)
	rec := a.do(httpTest{path: "/"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Rudra Driving School API!", rec.Body.String())
}

func Test_authApi(t *testing.T) {
	a := newApp(t)
	ram := testutil.CreateDriver(t, a.stores.Drivers, "Ram", "ram", pwd, "", true)
	gone := testutil.CreateDriver(t, a.stores.Drivers, "Gone", "gone", pwd, "", false)

	login := func(uname, pwd string) []byte {
		return marshalObj(t, LoginRequest{Username: uname, Password: pwd})
	}
	tests := []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login", body: login("ram", "lol"),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/auth/login", body: login("gone", pwd),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "me without token", path: "/v1/auth/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "me", path: "/v1/auth/me", token: getToken(t, ram), wantCode: http.StatusOK, wantData: marshalObj(t, ram)},
		{
			name: "me, deactivated since login", path: "/v1/auth/me", token: getToken(t, gone),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, a.do(tt))
		})
	}

	t.Run("login", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: "/v1/auth/login", body: login(" RAM ", pwd)})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, ram.ID, resp.Driver.ID)

		rec = a.do(httpTest{path: "/v1/auth/me", token: resp.Token})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("deleted driver", func(t *testing.T) {
		token := getToken(t, ram)
		require.NoError(t, a.stores.Drivers.DeleteDriver(context.Background(), ram.ID))
		rec := a.do(httpTest{path: "/v1/auth/me", token: token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_admissionApi(t *testing.T) {
	a := newApp(t)
	admin := testutil.CreateDriver(t, a.stores.Drivers, "Admin", "admin", pwd, driver.RoleAdmin, true)
	ram := testutil.CreateDriver(t, a.stores.Drivers, "Ram", "ram", pwd, "", true)
	adminToken, ramToken := getToken(t, admin), getToken(t, ram)

	body := marshalObj(t, admission.NewAdmission{
		StudentName:   "Asha Rai",
		Contact:       "9800000000",
		Sex:           "F",
		LicenseType:   admission.LicenseTypeNA,
		Duration:      "8 rides",
		Fees:          8000,
		AdvanceAmount: 3000,
	})

	rec := a.do(httpTest{method: http.MethodPost, path: "/v1/admissions", body: body, token: ramToken})
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)}, rec)

	rec = a.do(httpTest{method: http.MethodPost, path: "/v1/admissions", body: body, token: adminToken})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Warning"))
	var adm admission.Admission
	unmarshal(t, rec, &adm)
	assert.Equal(t, 8, adm.TotalRides)
	assert.Equal(t, admission.StatusActive, adm.Status)

	t.Run("invalid", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: "/v1/admissions", body: []byte(`{"student_name": "  "}`), token: adminToken})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("advance recorded", func(t *testing.T) {
		rec := a.do(httpTest{path: fmt.Sprintf("/v1/admissions/%s/payments", adm.ID), token: ramToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var payments []payment.Payment
		unmarshal(t, rec, &payments)
		require.Len(t, payments, 1)
		assert.Equal(t, payment.TypeAdvance, payments[0].PaymentType)

		rec = a.do(httpTest{path: fmt.Sprintf("/v1/admissions/%s/payments/next", adm.ID), token: ramToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var next payment.Next
		unmarshal(t, rec, &next)
		assert.Equal(t, payment.TypeInstallment1, next.PaymentType)
		assert.Equal(t, int64(5000), next.Remaining)
	})

	t.Run("rides complete the admission", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			rec := a.do(httpTest{
				method: http.MethodPost,
				path:   "/v1/rides",
				body:   marshalObj(t, ride.NewRide{ClientName: "Asha Rai", DriverName: "Ram", Car: "Swift"}),
				token:  ramToken,
			})
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var r ride.Ride
			unmarshal(t, rec, &r)
			assert.Equal(t, adm.ID, r.ClientID)
			assert.Equal(t, ram.ID, r.DriverID)
		}

		rec := a.do(httpTest{path: "/v1/admissions/" + adm.ID, token: ramToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var got admission.Admission
		unmarshal(t, rec, &got)
		assert.Equal(t, 8, got.RidesCompleted)
		assert.Equal(t, admission.StatusCompleted, got.Status)

		rec = a.do(httpTest{path: fmt.Sprintf("/v1/admissions/%s/view", adm.ID), token: ramToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var v struct {
			Rides     []ride.Ride `json:"rides"`
			Completed int         `json:"completed"`
			Remaining int         `json:"remaining"`
			Balance   int64       `json:"balance"`
		}
		unmarshal(t, rec, &v)
		assert.Len(t, v.Rides, 8)
		assert.Equal(t, 8, v.Completed)
		assert.Zero(t, v.Remaining)
		assert.Equal(t, int64(5000), v.Balance)
		assert.Equal(t, "Ram", v.Rides[0].DriverName)
	})

	t.Run("reconcile", func(t *testing.T) {
		rec := a.do(httpTest{method: http.MethodPost, path: fmt.Sprintf("/v1/admissions/%s/reconcile", adm.ID), token: ramToken})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = a.do(httpTest{method: http.MethodPost, path: fmt.Sprintf("/v1/admissions/%s/reconcile", adm.ID), token: adminToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var p admission.Progress
		unmarshal(t, rec, &p)
		assert.Equal(t, 8, p.RidesCompleted)
		assert.False(t, p.Completed, "already completed")

		rec = a.do(httpTest{method: http.MethodPost, path: "/v1/reconcile", token: adminToken})
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, SweepResponse{Reconciled: 1, Failed: map[string]string{}})}, rec)
	})

	t.Run("delete", func(t *testing.T) {
		tests := []httpTest{
			{name: "unknown", path: "/v1/admissions/lol", wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
			{name: "has dependents", path: "/v1/admissions/" + adm.ID, wantCode: http.StatusBadRequest},
			{name: "cascade", path: "/v1/admissions/" + adm.ID + "?cascade=true", wantCode: http.StatusNoContent},
			{name: "gone", path: "/v1/admissions/" + adm.ID, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method, tt.token = http.MethodDelete, adminToken
				checkCodeAndData(t, tt, a.do(tt))
			})
		}
	})
}

func Test_paymentApi(t *testing.T) {
	a := newApp(t)
	ram := testutil.CreateDriver(t, a.stores.Drivers, "Ram", "ram", pwd, "", true)
	token := getToken(t, ram)
	adm := testutil.CreateAdmission(t, a.stores.Admissions, "Bina", 8, 8000)

	add := func(amount int64) httpTest {
		return httpTest{
			method: http.MethodPost,
			path:   "/v1/payments",
			body:   marshalObj(t, payment.NewPayment{AdmissionID: adm.ID, Amount: amount}),
			token:  token,
		}
	}

	rec := a.do(add(9000))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(add(3000))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p payment.Payment
	unmarshal(t, rec, &p)
	assert.Equal(t, payment.TypeInstallment1, p.PaymentType)

	rec = a.do(httpTest{path: "/v1/payments?date_from=lol", token: token})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"date_from": "date_from must be a date formatted as YYYY-MM-DD"}),
	}, rec)

	rec = a.do(httpTest{method: http.MethodDelete, path: "/v1/payments/" + p.ID, token: token})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_driverApi(t *testing.T) {
	a := newApp(t)
	root := testutil.CreateDriver(t, a.stores.Drivers, "root", driver.RootUsername, pwd, driver.RoleAdmin, true)
	admin := testutil.CreateDriver(t, a.stores.Drivers, "Admin", "admin", pwd, driver.RoleAdmin, true)
	ram := testutil.CreateDriver(t, a.stores.Drivers, "Ram", "ram", pwd, "", true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "admin required", path: "/v1/drivers", token: getToken(t, ram), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "stats", path: "/v1/drivers/stats", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, driver.Stats{Total: 2, Active: 2})},
		{name: "delete self", method: http.MethodDelete, path: "/v1/drivers/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete root", method: http.MethodDelete, path: "/v1/drivers/" + root.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/drivers/" + ram.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/drivers/" + ram.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, a.do(tt))
		})
	}

	t.Run("create", func(t *testing.T) {
		body := marshalObj(t, driver.NewDriver{Name: "Sita", Username: "sita", Password: pwd, PasswordConfirm: pwd})
		rec := a.do(httpTest{method: http.MethodPost, path: "/v1/drivers", body: body, token: adminToken})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = a.do(httpTest{method: http.MethodPost, path: "/v1/drivers", body: body, token: adminToken})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_reportApi(t *testing.T) {
	a := newApp(t)
	admin := testutil.CreateDriver(t, a.stores.Drivers, "Admin", "admin", pwd, driver.RoleAdmin, true)
	adm := testutil.CreateAdmission(t, a.stores.Admissions, "Chet", 8, 8000)
	testutil.CreatePayment(t, a.stores.Payments, adm.ID, 4000, payment.TypeAdvance, testutil.Date(2023, 1, 1))
	testutil.CreateExpense(t, a.stores.Expenses, "Fuel", 1000, admin.ID, testutil.Date(2023, 1, 2))

	rec := a.do(httpTest{path: "/v1/reports/balance", token: getToken(t, admin)})
	require.Equal(t, http.StatusOK, rec.Code)
	var summary ledger.Summary
	unmarshal(t, rec, &summary)
	assert.Equal(t, ledger.Totals{Collected: 4000, Spent: 1000, Balance: 3000, ProfitMargin: 75}, summary.Overall)
	assert.Equal(t, ledger.Totals{}, summary.Month)
}
