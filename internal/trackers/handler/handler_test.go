package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	reportstore "guidinghand/internal/reports/store"
	"guidinghand/internal/trackers/models"
	"guidinghand/internal/trackers/service"
	"guidinghand/internal/trackers/store"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router    http.Handler
	missingID id.MissingPersonID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reports := reportstore.NewInMemory()
	missing := testutil.NewMissingPerson().Build()
	s.Require().NoError(reports.CreateMissing(context.Background(), missing))
	s.missingID = missing.ID

	r := chi.NewRouter()
	New(service.New(store.NewInMemory(), reports, logger), logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) subscribe(missingID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/missing-persons/"+missingID+"/trackers", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestSubscribe() {
	s.Run("repeat subscription returns the same tracker id", func() {
		first := s.subscribe(s.missingID.String(), `{"email":"t@example.com"}`)
		s.Require().Equal(http.StatusOK, first.Code)
		second := s.subscribe(s.missingID.String(), `{"email":"T@example.com"}`)
		s.Require().Equal(http.StatusOK, second.Code)

		var a, b models.SubscribeResponse
		s.Require().NoError(json.Unmarshal(first.Body.Bytes(), &a))
		s.Require().NoError(json.Unmarshal(second.Body.Bytes(), &b))
		s.NotEmpty(a.TrackerID)
		s.Equal(a.TrackerID, b.TrackerID)
	})

	s.Run("invalid email", func() {
		rec := s.subscribe(s.missingID.String(), `{"email":"nope"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_error")
	})

	s.Run("unknown report", func() {
		rec := s.subscribe(id.NewMissingPersonID().String(), `{"email":"t@example.com"}`)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed report id", func() {
		rec := s.subscribe("abc", `{"email":"t@example.com"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown fields are rejected", func() {
		rec := s.subscribe(s.missingID.String(), `{"email":"t@example.com","verified":true}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
