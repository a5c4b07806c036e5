package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-control/internal/config"
	"parking-control/internal/domain/vehicle"
	"parking-control/internal/realtime"
	"parking-control/internal/repository"
	"parking-control/internal/service"
)

type Handler struct {
	admissions *service.AdmissionService
	zones      *service.ZoneService
	ws         *realtime.WebSocketHandler
	config     *config.Config
	log        zerolog.Logger
}

func NewHandler(
	admissions *service.AdmissionService,
	zones *service.ZoneService,
	ws *realtime.WebSocketHandler,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		admissions: admissions,
		zones:      zones,
		ws:         ws,
		config:     cfg,
		log:        log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.POST("/incoming", h.createIncoming)
		public.GET("/incoming", h.listPending)
		public.GET("/incoming/stats", h.ingestStats)
		public.POST("/incoming/:id/process", h.processIncoming)

		public.GET("/vehicles", h.listVehicles)
		public.GET("/vehicles/stats", h.pollutionStats)
		public.PUT("/vehicles/:id/exit", h.recordExit)

		public.GET("/zones", h.listZones)
		public.GET("/zones/:id", h.getZone)

		public.GET("/ws", h.ws.Handle)
	}

	// Administrative endpoints
	admin := r.Group("/api/v1")
	admin.Use(authMiddleware)
	{
		admin.POST("/zones", h.createZone)
		admin.PUT("/zones/:id", h.updateZone)
		admin.DELETE("/zones/:id", h.deleteZone)
	}
}

func (h *Handler) createIncoming(c *gin.Context) {
	var det vehicle.Detection
	if err := c.ShouldBindJSON(&det); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if det.DetectedAt.IsZero() {
		det.DetectedAt = time.Now()
	}

	result, err := h.admissions.Admit(c.Request.Context(), det)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := gin.H{
		"decision": result.Record.Decision,
		"record":   result.Record,
	}
	if result.Zone != nil {
		resp["zoneInfo"] = gin.H{
			"name":           result.Zone.Name,
			"occupancy":      result.Zone.OccupancyPercentage(),
			"threshold":      result.Zone.ThresholdPercentage,
			"availableSlots": result.Zone.AvailableSlots(),
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) listPending(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	records, err := h.admissions.ListPending(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "data": records})
}

func (h *Handler) ingestStats(c *gin.Context) {
	stats, err := h.admissions.IngestStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) processIncoming(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	rec, err := h.admissions.Reprocess(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(rec))
}

func (h *Handler) listVehicles(c *gin.Context) {
	filter := repository.RecordFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if f := strings.TrimSpace(c.Query("fuel_type")); f != "" {
		fuel := vehicle.FuelClass(f)
		filter.FuelType = &fuel
	}
	if d := strings.TrimSpace(c.Query("decision")); d != "" {
		decision := vehicle.Decision(d)
		filter.Decision = &decision
	}
	var err error
	if filter.From, err = queryTime(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid from time format"))
		return
	}
	if filter.To, err = queryTime(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid to time format"))
		return
	}

	records, err := h.admissions.ListRecords(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "data": records})
}

func (h *Handler) pollutionStats(c *gin.Context) {
	report, err := h.admissions.Pollution(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) recordExit(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	result, err := h.admissions.RecordExit(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) listZones(c *gin.Context) {
	zones, err := h.zones.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(zones), "data": zones})
}

func (h *Handler) getZone(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	z, err := h.zones.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(z))
}

func (h *Handler) createZone(c *gin.Context) {
	var in service.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	z, err := h.zones.Create(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(z))
}

func (h *Handler) updateZone(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in service.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	z, err := h.zones.Update(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(z))
}

func (h *Handler) deleteZone(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.zones.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, repository.ErrAlreadyExited):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, repository.ErrDuplicateName):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
