package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/spellproof/spellproof/internal/mappingstore"
	"github.com/spellproof/spellproof/internal/validate"
	"github.com/spellproof/spellproof/pkg/provider/stt"
)

// maxBodyBytes bounds request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

// Register adds the service's HTTP routes to mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /validate", s.handleValidate)
	mux.HandleFunc("POST /learn/{userId}", s.handleLearn)
	mux.HandleFunc("GET /mappings/{userId}", s.handleListMappings)
	mux.HandleFunc("PUT /mappings/{userId}", s.handlePutMapping)
}

// validateRequest is the JSON body of POST /validate. The words array uses
// the same shape as the gateway's final envelope so consumers can pass
// timings straight through.
type validateRequest struct {
	UserID string `json:"userId"`
	Answer string `json:"answer"`
	Word   string `json:"word"`
	Method string `json:"method"`
	Words  []struct {
		Word       string  `json:"word"`
		StartTime  float64 `json:"startTime"`
		EndTime    float64 `json:"endTime"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// validateResponse is the JSON body returned by POST /validate.
type validateResponse struct {
	IsCorrect        bool   `json:"isCorrect"`
	WasSpelledOut    *bool  `json:"wasSpelledOut,omitempty"`
	RejectionReason  string `json:"rejectionReason,omitempty"`
	ExtractedLetters string `json:"extractedLetters,omitempty"`
}

func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body validateRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	method := validate.InputMethod(body.Method)
	if method != validate.MethodVoice && method != validate.MethodKeyboard {
		writeError(w, http.StatusBadRequest, "method must be voice or keyboard")
		return
	}

	req := AnswerRequest{
		UserID: body.UserID,
		Answer: body.Answer,
		Word:   body.Word,
		Method: method,
	}
	for _, wd := range body.Words {
		req.Words = append(req.Words, stt.WordDetail{
			Word:       wd.Word,
			Start:      time.Duration(wd.StartTime * float64(time.Second)),
			End:        time.Duration(wd.EndTime * float64(time.Second)),
			Confidence: wd.Confidence,
		})
	}

	res, err := s.ValidateAnswer(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		IsCorrect:        res.IsCorrect,
		WasSpelledOut:    res.WasSpelledOut,
		RejectionReason:  res.RejectionReason,
		ExtractedLetters: res.Extraction.Letters,
	})
}

// learnResponse is the JSON body returned by POST /learn/{userId}.
type learnResponse struct {
	UserID          string        `json:"userId"`
	LogsAnalyzed    int           `json:"logsAnalyzed"`
	PatternsFound   int           `json:"patternsFound"`
	MappingsCreated int           `json:"mappingsCreated"`
	NewMappings     []mappingJSON `json:"newMappings"`
}

func (s *Service) handleLearn(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	report, err := s.RunLearning(r.Context(), userID)
	if err != nil {
		slog.Error("learning run failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "learning run failed")
		return
	}

	resp := learnResponse{
		UserID:          report.UserID,
		LogsAnalyzed:    report.LogsAnalyzed,
		PatternsFound:   report.PatternsFound,
		MappingsCreated: report.MappingsCreated,
		NewMappings:     make([]mappingJSON, 0, len(report.NewMappings)),
	}
	for _, m := range report.NewMappings {
		resp.NewMappings = append(resp.NewMappings, toMappingJSON(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// mappingJSON is the wire shape of one phonetic mapping.
type mappingJSON struct {
	UserID          string    `json:"userId"`
	Heard           string    `json:"heard"`
	Intended        string    `json:"intended"`
	Source          string    `json:"source"`
	Confidence      float64   `json:"confidence"`
	OccurrenceCount int       `json:"occurrenceCount"`
	TimesApplied    int       `json:"timesApplied"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
	UpdatedAt       time.Time `json:"updatedAt,omitzero"`
}

func toMappingJSON(m mappingstore.Mapping) mappingJSON {
	return mappingJSON{
		UserID:          m.UserID,
		Heard:           m.Heard,
		Intended:        m.Intended,
		Source:          string(m.Source),
		Confidence:      m.Confidence,
		OccurrenceCount: m.OccurrenceCount,
		TimesApplied:    m.TimesApplied,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (s *Service) handleListMappings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	mappings, err := s.UserMappings(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list mappings", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list mappings")
		return
	}

	out := make([]mappingJSON, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, toMappingJSON(m))
	}
	writeJSON(w, http.StatusOK, map[string][]mappingJSON{"mappings": out})
}

// putMappingRequest is the JSON body of PUT /mappings/{userId}.
type putMappingRequest struct {
	Heard    string `json:"heard"`
	Intended string `json:"intended"`
	Source   string `json:"source"`
}

func (s *Service) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var body putMappingRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	m := mappingstore.Mapping{
		UserID:   userID,
		Heard:    body.Heard,
		Intended: body.Intended,
		Source:   mappingstore.Source(body.Source),
	}
	if err := s.PutMapping(r.Context(), m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes the request body into v, writing a 400 response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
