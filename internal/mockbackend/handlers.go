package mockbackend

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kroma-labs/rainlogger-go/auth"
	"github.com/kroma-labs/rainlogger-go/httpserver"
	"github.com/kroma-labs/rainlogger-go/rainlog"
)

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req auth.LoginRequest
	if err := httpserver.DecodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpserver.WriteError(w, http.StatusBadRequest, "Please provide email and password!")
		return
	}

	user, err := b.store.Authenticate(req.Email, req.Password)
	if err != nil {
		logger.Info().Str("email", req.Email).Msg("login rejected")
		httpserver.WriteError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := b.IssueToken(user)
	if err != nil {
		logger.Error().Err(err).Msg("could not issue session token")
		httpserver.WriteError(w, http.StatusInternalServerError, "Something went very wrong!")
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("user logged in")
	httpserver.WriteJSON(w, http.StatusOK, auth.LoginResponse{
		Status: httpserver.StatusSuccess,
		Token:  token,
		Data:   auth.UserData{User: user},
	})
}

func (b *Backend) isLoggedIn(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpserver.PrincipalFromContext(r.Context())

	user, ok := b.store.User(principal.Subject)
	if !ok {
		httpserver.WriteError(w, http.StatusUnauthorized, "The user belonging to this token does no longer exist.")
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, auth.IsLoggedInResponse{
		Status:  httpserver.StatusSuccess,
		Message: "User is logged in",
		Data:    auth.UserData{User: user},
	})
}

func notLoggedIn(w http.ResponseWriter, _ *http.Request) {
	httpserver.WriteError(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access.")
}

func (b *Backend) filters(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	logs := b.store.RainLogs(q)
	zerolog.Ctx(r.Context()).Debug().
		Str("location", q.Location).
		Str("from", q.From).
		Str("to", q.To).
		Int("count", len(logs)).
		Msg("rainlogs filtered")

	httpserver.WriteSuccess(w, http.StatusOK, "", rainlog.ListData{RainLogs: logs})
}

var (
	errInvalidDate        = errors.New("dates must be in the format YYYY-MM-DD")
	errInvalidRange       = errors.New("dateFrom must not be after dateTo")
	errInvalidRealReading = errors.New("realReading must be true or false")
)

// parseQuery reads either date, or dateFrom and dateTo, plus location and
// realReading. realReading=true keeps only real readings; false keeps all.
func parseQuery(v url.Values) (Query, error) {
	q := Query{Location: v.Get("location")}

	if date := v.Get("date"); date != "" {
		if !rainlog.IsDate(date) {
			return Query{}, errInvalidDate
		}
		q.From = date[:len(rainlog.DateLayout)]
		q.To = q.From
	} else {
		for _, d := range []struct {
			raw string
			dst *string
		}{
			{v.Get("dateFrom"), &q.From},
			{v.Get("dateTo"), &q.To},
		} {
			if d.raw == "" {
				continue
			}
			if !rainlog.IsDate(d.raw) {
				return Query{}, errInvalidDate
			}
			*d.dst = d.raw[:len(rainlog.DateLayout)]
		}
		if q.From != "" && q.To != "" && q.From > q.To {
			return Query{}, errInvalidRange
		}
	}

	if raw := v.Get("realReading"); raw != "" {
		realOnly, err := strconv.ParseBool(raw)
		if err != nil {
			return Query{}, errInvalidRealReading
		}
		q.RealOnly = realOnly
	}
	return q, nil
}

func (b *Backend) createRainLog(w http.ResponseWriter, r *http.Request) {
	var in rainlog.NewRainLog
	if err := httpserver.DecodeJSON(r, &in); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Measurement < 0 {
		httpserver.WriteError(w, http.StatusBadRequest, "Measurement must be non-negative.")
		return
	}
	if err := rainlog.Validate(in); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	principal, _ := httpserver.PrincipalFromContext(r.Context())
	log := b.store.CreateRainLog(in, principal.Name)

	zerolog.Ctx(r.Context()).Info().
		Str("id", log.ID).
		Str("location", log.Location).
		Msg("rainlog added")
	httpserver.WriteSuccess(w, http.StatusCreated, "Rainlog added successfully", rainlog.ItemData{RainLog: log})
}

func (b *Backend) updateRainLog(w http.ResponseWriter, r *http.Request) {
	var in rainlog.Update
	if err := httpserver.DecodeJSON(r, &in); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.Measurement < 0 {
		httpserver.WriteError(w, http.StatusBadRequest, "Measurement must be non-negative.")
		return
	}
	if err := rainlog.Validate(in); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	log, err := b.store.UpdateRainLog(in)
	if errors.Is(err, ErrNotFound) {
		httpserver.WriteError(w, http.StatusNotFound, "No rainlog found with that ID")
		return
	}

	httpserver.WriteSuccess(w, http.StatusOK, "Rainlog updated successfully", rainlog.ItemData{RainLog: log})
}

func (b *Backend) deleteRainLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := b.store.DeleteRainLog(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpserver.WriteError(w, http.StatusNotFound, "No rainlog found with that ID")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("delete failed")
		httpserver.WriteError(w, http.StatusInternalServerError, "Failed to delete rain log")
		return
	}

	zerolog.Ctx(r.Context()).Info().Str("id", id).Msg("rainlog deleted")
	httpserver.WriteNoContent(w)
}

// flaky fails every odd call with a 500 and answers every even call.
func (b *Backend) flaky(w http.ResponseWriter, _ *http.Request) {
	if b.flakyCalls.Add(1)%2 == 1 {
		httpserver.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]string{"data": "success"})
}

func badRequest(w http.ResponseWriter, _ *http.Request) {
	httpserver.WriteError(w, http.StatusBadRequest, "Bad Request")
}
