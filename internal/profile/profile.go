// Package profile carga y expone el perfil ASPSP: la configuración regulatoria
// que decide cómo se comporta el engine (approach por defecto, modo de
// validación del confirmation code, templates de redirect).
//
// El perfil se consulta en dos momentos: al crear una autorización (approach)
// y al confirmar (modo de validación). Es configuración, no estado: se lee de
// un YAML y se cachea con TTL corto para poder recargar sin reiniciar.
package profile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/types"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// Profile es el snapshot del perfil ASPSP.
type Profile struct {
	// DefaultScaApproach decide el approach de toda autorización nueva.
	DefaultScaApproach types.ScaApproach `yaml:"default_sca_approach"`

	// ConfirmationCodeCheckByEngine: true = validación local (el engine
	// compara contra scaAuthenticationData), false = delegada al connector.
	ConfirmationCodeCheckByEngine bool `yaml:"confirmation_code_check_by_engine"`

	// Templates de redirect. Placeholders: {authorisation-id}, {token}.
	RedirectURLTemplate    string `yaml:"redirect_url_template"`
	NokRedirectURLTemplate string `yaml:"nok_redirect_url_template"`

	// RedirectTokenTTL limita la vida del state token firmado del link.
	RedirectTokenTTL time.Duration `yaml:"redirect_token_ttl"`

	// AuthorisationTTL es la ventana de vida de una autorización.
	AuthorisationTTL time.Duration `yaml:"authorisation_ttl"`
}

// Source expone el perfil vigente.
type Source interface {
	Current(ctx context.Context) (*Profile, error)
}

// Static es un Source fijo, útil en tests.
type Static struct{ P Profile }

func (s Static) Current(ctx context.Context) (*Profile, error) { return &s.P, nil }

const cacheKey = "aspsp-profile"

// FileSource lee el perfil de un archivo YAML y lo memoiza. Las cargas
// concurrentes tras expirar el TTL se colapsan en una sola lectura.
type FileSource struct {
	path  string
	cache *gocache.Cache
	group singleflight.Group
}

// NewFileSource crea un Source sobre un archivo YAML. ttl controla cada
// cuánto se relee el archivo (0 usa 30s).
func NewFileSource(path string, ttl time.Duration) *FileSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &FileSource{
		path:  path,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Current retorna el perfil vigente, releyendo el archivo si expiró el cache.
func (s *FileSource) Current(ctx context.Context) (*Profile, error) {
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(*Profile), nil
	}
	v, err, _ := s.group.Do(cacheKey, func() (any, error) {
		p, err := load(s.path)
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(cacheKey, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Profile), nil
}

func load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.applyDefaults()
	return &p, nil
}

func (p *Profile) validate() error {
	if !p.DefaultScaApproach.Valid() {
		return fmt.Errorf("profile: unknown default_sca_approach %q", p.DefaultScaApproach)
	}
	return nil
}

func (p *Profile) applyDefaults() {
	if p.RedirectTokenTTL <= 0 {
		p.RedirectTokenTTL = 5 * time.Minute
	}
	if p.AuthorisationTTL <= 0 {
		p.AuthorisationTTL = 24 * time.Hour
	}
}
