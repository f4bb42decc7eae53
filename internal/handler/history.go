package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ucampus/lab-reservation/internal/repository"
)

// HistoryHandler serves a lab's audit trail, as JSON or CSV export.
type HistoryHandler struct {
	Labs    *repository.LabRepo
	History *repository.HistoryRepo
}

func NewHistoryHandler(labs *repository.LabRepo, history *repository.HistoryRepo) *HistoryHandler {
	return &HistoryHandler{Labs: labs, History: history}
}

func historyFilter(c echo.Context) (repository.HistoryFilter, error) {
	f := repository.HistoryFilter{Action: c.QueryParam("action")}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("from must be RFC3339")
		}
		f.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("to must be RFC3339")
		}
		f.To = t
	}
	return f, nil
}

// List returns a lab's history entries, newest first.
func (h *HistoryHandler) List(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	f, err := historyFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if _, err := h.Labs.GetByID(ctx, id); err != nil {
		return writeDomainError(c, err)
	}
	entries, err := h.History.ListByLab(ctx, id, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"history": entries})
}

// ExportCSV streams the same entries as a CSV attachment.
func (h *HistoryHandler) ExportCSV(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	f, err := historyFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	lab, err := h.Labs.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	entries, err := h.History.ListByLab(ctx, id, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="lab-%s-history.csv"`, lab.Code))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{"id", "lab_id", "actor_user_id", "action_type", "detail", "created_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		actor := ""
		if e.ActorUserID != nil {
			actor = strconv.FormatUint(*e.ActorUserID, 10)
		}
		row := []string{
			strconv.FormatUint(e.ID, 10),
			strconv.FormatUint(e.LabID, 10),
			actor,
			e.ActionType,
			e.Detail,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
