package patient

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/pkg/pagination"
)

type Handler struct {
	reg             *Registry
	logger          zerolog.Logger
	defaultPageSize int
	maxPageSize     int
}

func NewHandler(reg *Registry, logger zerolog.Logger, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{
		reg:             reg,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/departments", h.ListDepartments)
	api.GET("/sample", h.DownloadSample)

	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:sid", h.GetSession)
	api.DELETE("/sessions/:sid", h.DeleteSession)

	api.GET("/sessions/:sid/patients", h.ListPatients)
	api.GET("/sessions/:sid/patients/:mbi", h.GetPatient)

	api.PUT("/sessions/:sid/filter", h.SetFilter)
	api.DELETE("/sessions/:sid/filter", h.ClearFilter)
	api.POST("/sessions/:sid/filter/departments/:department", h.ToggleDepartment)
	api.POST("/sessions/:sid/sort/:key", h.ToggleSort)

	api.GET("/sessions/:sid/selection", h.GetSelection)
	api.POST("/sessions/:sid/selection/delete", h.DeleteSelected)
	api.POST("/sessions/:sid/selection/:mbi", h.ToggleSelection)
	api.DELETE("/sessions/:sid/selection", h.ClearSelection)

	api.GET("/sessions/:sid/draft", h.GetDraft)
	api.PATCH("/sessions/:sid/draft", h.UpdateDraft)
	api.DELETE("/sessions/:sid/draft", h.ResetDraft)

	api.POST("/sessions/:sid/import", h.StageImport)
	api.GET("/sessions/:sid/import", h.GetStaged)
	api.DELETE("/sessions/:sid/import", h.DiscardImport)
	api.POST("/sessions/:sid/commit", h.Commit)
}

// -- Reference data --

func (h *Handler) ListDepartments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctors":     Doctors(),
		"departments": Departments(),
	})
}

func (h *Handler) DownloadSample(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = FormatJSON
	}
	var buf bytes.Buffer
	if err := WriteSample(&buf, format); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	contentType := echo.MIMEApplicationJSONCharsetUTF8
	if format == FormatYAML {
		contentType = "application/yaml"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", SampleFileName(format)))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// -- Sessions --

func (h *Handler) CreateSession(c echo.Context) error {
	s, err := h.reg.Create()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, s.Snapshot())
}

func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	if err := h.reg.Delete(id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Records --

func (h *Handler) ListPatients(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	page, err := s.SetPaging(pagination.FromContext(c, h.defaultPageSize, h.maxPageSize))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(page.Records, page.Total, page.Params()))
}

func (h *Handler) GetPatient(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	r, err := s.Find(c.Param("mbi"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, r)
}

// -- Filter and sort --

type filterRequest struct {
	Departments []string `json:"departments"`
	Search      string   `json:"search"`
}

func (h *Handler) SetFilter(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	q, err := s.SetFilter(req.Departments, req.Search)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ClearFilter(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.ClearFilters()
	return c.JSON(http.StatusOK, s.Query())
}

func (h *Handler) ToggleDepartment(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if _, err := s.ToggleDepartment(c.Param("department")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s.Query())
}

func (h *Handler) ToggleSort(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	cfg, err := s.ToggleSort(c.Param("key"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// -- Selection --

func (h *Handler) GetSelection(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"selected": s.Selected()})
}

func (h *Handler) ToggleSelection(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	key := c.Param("mbi")
	selected := s.ToggleSelect(key)
	return c.JSON(http.StatusOK, map[string]interface{}{"mbi": key, "selected": selected})
}

func (h *Handler) ClearSelection(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteSelected(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	n := s.DeleteSelected()
	h.reg.Recorder().Deleted(n)
	h.logger.Info().
		Str("session_id", s.ID().String()).
		Int("deleted", n).
		Msg("selected patients deleted")
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": n, "selected": s.Selected()})
}

// -- Draft --

type draftResponse struct {
	Draft  Draft  `json:"draft"`
	Result Result `json:"result"`
}

func (h *Handler) GetDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	d, res := s.Draft()
	return c.JSON(http.StatusOK, draftResponse{Draft: d, Result: res})
}

func (h *Handler) UpdateDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	// Body only: Bind would also copy path params into the map.
	var changes map[string]string
	if err := (&echo.DefaultBinder{}).BindBody(c, &changes); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, res, err := s.UpdateDraft(changes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, draftResponse{Draft: d, Result: res})
}

func (h *Handler) ResetDraft(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.ResetDraft()
	return c.NoContent(http.StatusNoContent)
}

// -- Import and commit --

func (h *Handler) StageImport(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	records, err := s.StageImport(c.Request().Body)
	h.reg.Recorder().ImportStaged(len(records), err)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("session_id", s.ID().String()).
			Str("request_id", requestID(c)).
			Msg("import rejected")
		return httpError(err)
	}
	h.logger.Info().
		Str("session_id", s.ID().String()).
		Int("staged", len(records)).
		Msg("import staged")
	return c.JSON(http.StatusOK, map[string]interface{}{"staged": len(records), "records": records})
}

func (h *Handler) GetStaged(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	records := s.Staged()
	return c.JSON(http.StatusOK, map[string]interface{}{"staged": len(records), "records": records})
}

func (h *Handler) DiscardImport(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	s.DiscardImport()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Commit(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	res, err := s.Commit()
	if err != nil {
		h.reg.Recorder().CommitRefused()
		body := map[string]interface{}{"message": ErrEmptyCommit.Error()}
		var verr *ValidationError
		if errors.As(err, &verr) {
			body["issues"] = verr.Issues
		}
		return c.JSON(http.StatusConflict, body)
	}
	h.reg.Recorder().Committed(res.Source, res.Added)
	h.logger.Info().
		Str("session_id", s.ID().String()).
		Str("source", string(res.Source)).
		Int("added", res.Added).
		Int("total", res.Total).
		Msg("records committed")
	return c.JSON(http.StatusOK, res)
}

// -- helpers --

func (h *Handler) session(c echo.Context) (*Session, error) {
	id, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	s, err := h.reg.Get(id)
	if err != nil {
		return nil, httpError(err)
	}
	return s, nil
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}

// httpError maps domain errors to HTTP errors.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyCommit), errors.Is(err, ErrImportSuperseded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrTooManySessions):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrParse),
		errors.Is(err, ErrUnknownDepartment),
		errors.Is(err, ErrUnknownSortKey),
		errors.Is(err, ErrUnknownField),
		errors.Is(err, ErrReadOnlyField):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
