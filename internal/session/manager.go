package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// CSRFField is the form field carrying the CSRF token.
const CSRFField = "csrfToken"

type ctxKey struct{}

// FromContext returns the request's session record. It is nil outside the
// session middleware.
func FromContext(ctx context.Context) *Record {
	rec, _ := ctx.Value(ctxKey{}).(*Record)
	return rec
}

// WithRecord attaches a record to ctx.
func WithRecord(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, ctxKey{}, rec)
}

// Options configure the session cookie.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	// MaxFormBytes caps url-encoded request bodies.
	MaxFormBytes int64
	// MaxUploadBytes caps multipart request bodies.
	MaxUploadBytes int64
}

const (
	defaultMaxFormBytes   = 1 << 20
	defaultMaxUploadBytes = 11 << 20
)

// Manager loads and saves session records around each request.
type Manager struct {
	store   Store
	signKey []byte
	sealer  sealer
	opts    Options
	metrics *observability.Metrics
	logger  *zap.Logger
}

type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewManager derives the cookie signing and record sealing keys from secret.
func NewManager(secret string, store Store, opts Options, metrics *observability.Metrics, logger *zap.Logger) (*Manager, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 characters")
	}
	signKey, err := deriveKey([]byte(secret), infoCookieKey)
	if err != nil {
		return nil, err
	}
	sealKey, err := deriveKey([]byte(secret), infoRecordKey)
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "selfservice_session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 90 * time.Minute
	}
	if opts.MaxFormBytes <= 0 {
		opts.MaxFormBytes = defaultMaxFormBytes
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Manager{
		store:   store,
		signKey: signKey,
		sealer:  sealer{key: sealKey},
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Middleware attaches the session record to the request context and saves it
// before the response is first written.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := m.load(r)
		sw := &savingWriter{ResponseWriter: w}
		sw.save = func() {
			if err := m.save(r.Context(), w, rec); err != nil {
				m.logger.Error("session save failed", zap.Error(err))
			}
		}

		next.ServeHTTP(sw, r.WithContext(WithRecord(r.Context(), rec)))
		sw.once.Do(sw.save)
	})
}

// CSRF rejects state-changing requests whose csrfToken field does not match
// the session's secret. The body is capped and parsed here, so handlers see
// an already parsed form.
func (m *Manager) CSRF(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if err := m.parseBody(w, r); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					onError(w, r, &domain.ErrPayloadTooLarge{Limit: tooLarge.Limit})
					return
				}
				m.logger.Debug("unreadable form body", zap.Error(err))
				onError(w, r, &domain.ErrCSRF{})
				return
			}
			rec := FromContext(r.Context())
			token := r.PostFormValue(CSRFField)
			if rec == nil || rec.CSRFSecret == "" || token == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(rec.CSRFSecret)) != 1 {
				onError(w, r, &domain.ErrCSRF{})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Manager) parseBody(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, m.opts.MaxUploadBytes)
		return r.ParseMultipartForm(m.opts.MaxUploadBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, m.opts.MaxFormBytes)
	return r.ParseForm()
}

func (m *Manager) load(r *http.Request) *Record {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return newRecord()
	}
	id, err := m.parseCookie(c.Value)
	if err != nil {
		m.logger.Debug("discarding session cookie", zap.Error(err))
		return newRecord()
	}
	sealed, found, err := m.store.Get(r.Context(), id)
	if err != nil {
		m.logger.Error("session load failed", zap.Error(err))
		return newRecord()
	}
	if !found {
		return newRecord()
	}
	plain, err := m.sealer.open(id, sealed)
	if err != nil {
		m.logger.Warn("session record failed to open", zap.Error(err))
		return newRecord()
	}
	rec := &Record{}
	if err := json.Unmarshal(plain, rec); err != nil || rec.ID != id {
		m.logger.Warn("session record corrupt", zap.String("session_id", id))
		return newRecord()
	}
	return rec
}

func (m *Manager) save(ctx context.Context, w http.ResponseWriter, rec *Record) error {
	if rec.destroyed {
		if !rec.isNew {
			if err := m.store.Delete(ctx, rec.ID); err != nil {
				return err
			}
		}
		m.expireCookie(w)
		return nil
	}
	if !rec.dirty {
		return nil
	}
	if rec.renew && !rec.isNew {
		if err := m.store.Delete(ctx, rec.ID); err != nil {
			return err
		}
		fresh := newRecord()
		rec.ID = fresh.ID
	}

	plain, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	sealed, err := m.sealer.seal(rec.ID, plain)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	if err := m.store.Set(ctx, rec.ID, sealed, m.opts.MaxAge); err != nil {
		return err
	}
	if rec.isNew || rec.renew {
		token, err := m.signCookie(rec.ID)
		if err != nil {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     m.opts.CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(m.opts.MaxAge.Seconds()),
			HttpOnly: true,
			Secure:   m.opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		if rec.isNew && m.metrics != nil {
			m.metrics.IncrSessionCreated()
		}
	}
	rec.isNew, rec.renew, rec.dirty = false, false, false
	return nil
}

func (m *Manager) signCookie(id string) (string, error) {
	now := time.Now()
	claims := cookieClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.MaxAge)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return token, nil
}

func (m *Manager) parseCookie(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(t *jwt.Token) (any, error) {
		return m.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*cookieClaims)
	if !ok || claims.SessionID == "" {
		return "", errors.New("session cookie has no session id")
	}
	return claims.SessionID, nil
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// savingWriter runs save once, before the first header or body write, so the
// session cookie can still be set.
type savingWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *savingWriter) WriteHeader(code int) {
	w.once.Do(w.save)
	w.ResponseWriter.WriteHeader(code)
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.once.Do(w.save)
	return w.ResponseWriter.Write(b)
}

func (w *savingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
