package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-control/internal/config"
	"parking-control/internal/domain/zone"
	"parking-control/internal/realtime"
	"parking-control/internal/repository/memory"
	"parking-control/internal/service"
)

const testSecret = "test-secret"

type testServer struct {
	router   *gin.Engine
	zones    *memory.ZoneStore
	vehicles *memory.VehicleStore
}

func newTestServer(t *testing.T, zones ...zone.Zone) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	zoneStore := memory.NewZoneStore()
	for _, z := range zones {
		zoneStore.Seed(z)
	}
	vehicleStore := memory.NewVehicleStore()
	bus := realtime.NewBus(16, zerolog.Nop())

	admissions := service.NewAdmissionService(
		zoneStore, vehicleStore,
		service.NewDefaultZoneResolver(zoneStore, ""),
		bus, zerolog.Nop(),
	)
	zoneSvc := service.NewZoneService(zoneStore, bus, zerolog.Nop())
	ws := realtime.NewWebSocketHandler(bus, zerolog.Nop())
	h := NewHandler(admissions, zoneSvc, ws, &config.Config{}, zerolog.Nop())

	router := gin.New()
	h.Register(router, NewAuthMiddleware(testSecret, zerolog.Nop()))
	return &testServer{router: router, zones: zoneStore, vehicles: vehicleStore}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func incomingBody(plate, category, fuel string) map[string]interface{} {
	return map[string]interface{}{
		"numberPlate":     plate,
		"vehicleCategory": category,
		"fuelType":        fuel,
		"confidence":      92.5,
	}
}

func TestCreateIncomingAllow(t *testing.T) {
	ts := newTestServer(t, zone.Zone{Name: "Zone A", TotalSlots: 10, OccupiedSlots: 5, ThresholdPercentage: 90})

	w := ts.do(t, http.MethodPost, "/api/v1/incoming", incomingBody("KA01AB1234", "Private", "EV"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Decision string `json:"decision"`
		ZoneInfo struct {
			AvailableSlots int `json:"availableSlots"`
		} `json:"zoneInfo"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Allow", resp.Decision)
	assert.Equal(t, 4, resp.ZoneInfo.AvailableSlots)
}

func TestCreateIncomingValidation(t *testing.T) {
	ts := newTestServer(t, zone.Zone{Name: "Zone A", TotalSlots: 10})
	w := ts.do(t, http.MethodPost, "/api/v1/incoming", incomingBody("", "Private", "EV"), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIncomingUnknownZone(t *testing.T) {
	ts := newTestServer(t, zone.Zone{Name: "Zone A", TotalSlots: 10})
	body := incomingBody("KA01AB1234", "Private", "EV")
	body["zoneId"] = 42
	w := ts.do(t, http.MethodPost, "/api/v1/incoming", body, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExitFlow(t *testing.T) {
	ts := newTestServer(t, zone.Zone{Name: "Zone A", TotalSlots: 10, ThresholdPercentage: 90})

	w := ts.do(t, http.MethodPost, "/api/v1/incoming", incomingBody("KA01AB1234", "Private", "EV"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Record struct {
			ID int64 `json:"id"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/vehicles/%d/exit", created.Record.ID)
	w = ts.do(t, http.MethodPut, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// a second exit for the same record conflicts
	w = ts.do(t, http.MethodPut, path, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPut, "/api/v1/vehicles/9999/exit", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListZonesPublic(t *testing.T) {
	ts := newTestServer(t,
		zone.Zone{Name: "Zone A", TotalSlots: 10, OccupiedSlots: 3},
		zone.Zone{Name: "Zone B", TotalSlots: 5},
	)

	w := ts.do(t, http.MethodGet, "/api/v1/zones", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
		Data  []struct {
			Name                string `json:"name"`
			AvailableSlots      int    `json:"available_slots"`
			OccupancyPercentage int    `json:"occupancy_percentage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Zone A", resp.Data[0].Name)
	assert.Equal(t, 7, resp.Data[0].AvailableSlots)
	assert.Equal(t, 30, resp.Data[0].OccupancyPercentage)
}

func TestZoneAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]interface{}{"name": "Zone C", "total_slots": 15}

	w := ts.do(t, http.MethodPost, "/api/v1/zones", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/zones", body, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/zones", body, adminToken(t))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// duplicate name conflicts
	w = ts.do(t, http.MethodPost, "/api/v1/zones", body, adminToken(t))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProcessIncomingIdempotent(t *testing.T) {
	ts := newTestServer(t, zone.Zone{Name: "Zone A", TotalSlots: 10, ThresholdPercentage: 90})

	w := ts.do(t, http.MethodPost, "/api/v1/incoming", incomingBody("KA01AB1234", "Private", "EV"), "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Record struct {
			ID int64 `json:"id"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/incoming/%d/process", created.Record.ID)
	for i := 0; i < 2; i++ {
		w = ts.do(t, http.MethodPost, path, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/incoming/9999/process", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
