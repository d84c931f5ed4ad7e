package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/academy-api/internal/models"
	"github.com/courtside/academy-api/internal/service"
	"github.com/courtside/academy-api/pkg/response"
)

type recordingSweeper struct {
	dates   []string
	updated int
}

func (s *recordingSweeper) MarkDailyAbsents(ctx context.Context, date string) (int, error) {
	if _, err := models.ParseDate(date); err != nil {
		return 0, err
	}
	s.dates = append(s.dates, date)
	return s.updated, nil
}

func TestSweepHandlerRunsForGivenDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	attendance := &recordingSweeper{updated: 2}
	teaching := &recordingSweeper{updated: 1}
	h := NewSweepHandler(service.NewSweepService(attendance, teaching, nil), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/sweep?date=2026-09-06", nil)
	c.Request = req

	h.Run(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2026-09-06"}, attendance.dates)
	assert.Equal(t, []string{"2026-09-06"}, teaching.dates)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
}
