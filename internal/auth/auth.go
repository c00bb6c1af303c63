package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrInvalidPasscode = errors.New("invalid passcode")
	ErrInvalidMode     = errors.New("invalid mode")
	ErrFleetRequired   = errors.New("fleet is required for driver and mechanic sessions")
)

// Flat keys shared by every tenant.
const (
	AdminAuthKey        = "mf_admin_auth"
	TrustedDevicePrefix = "mf_trusted_device_"
	flagOn              = "true"
)

// Service opens mode sessions and guards admin mode behind a passcode.
type Service struct {
	jwtSecret    []byte
	tokenExp     time.Duration
	passcodeHash []byte
	store        db.KeyValueStore
	now          func() time.Time
}

// NewService creates a new authentication service. The configured passcode is
// kept only as a bcrypt hash.
func NewService(cfg *config.Config, store db.KeyValueStore) (*Service, error) {
	passcode := cfg.AdminPasscode
	if passcode == "" {
		passcode = config.DefaultAdminPasscode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash passcode: %w", err)
	}

	exp := cfg.JWTExpiry
	if exp <= 0 {
		exp = 12 * time.Hour
	}

	return &Service{
		jwtSecret:    []byte(cfg.JWTSecret),
		tokenExp:     exp,
		passcodeHash: hash,
		store:        store,
		now:          time.Now,
	}, nil
}

// CheckPasscode checks a passcode against the configured one
func (s *Service) CheckPasscode(passcode string) bool {
	return bcrypt.CompareHashAndPassword(s.passcodeHash, []byte(passcode)) == nil
}

// OpenSession switches the console into the requested mode. Admin mode needs
// the passcode unless the device was trusted by an earlier unlock.
func (s *Service) OpenSession(ctx context.Context, req models.SessionRequest) (*models.SessionResponse, error) {
	if !models.IsValidMode(req.Mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.Mode != models.ModeAdmin && strings.TrimSpace(req.FleetID) == "" {
		return nil, ErrFleetRequired
	}

	trusted := false
	if req.Mode == models.ModeAdmin {
		var err error
		trusted, err = s.IsTrustedDevice(ctx, req.DeviceID)
		if err != nil {
			return nil, err
		}
		if !trusted {
			if !s.CheckPasscode(req.Passcode) {
				log.WithField("device", req.DeviceID).Warn("Rejected admin passcode")
				return nil, ErrInvalidPasscode
			}
			if req.TrustDevice {
				if req.DeviceID == "" {
					if req.DeviceID, err = s.GenerateDeviceID(); err != nil {
						return nil, err
					}
				}
				if err := s.store.Set(ctx, TrustedDevicePrefix+req.DeviceID, flagOn); err != nil {
					return nil, fmt.Errorf("trust device: %w", err)
				}
				trusted = true
			}
		}
		if err := s.store.Set(ctx, AdminAuthKey, flagOn); err != nil {
			return nil, fmt.Errorf("unlock admin: %w", err)
		}
	}

	token, err := s.GenerateToken(models.Claims{Mode: req.Mode, FleetID: req.FleetID, DeviceID: req.DeviceID})
	if err != nil {
		return nil, err
	}
	return &models.SessionResponse{Token: token, Mode: req.Mode, FleetID: req.FleetID, DeviceID: req.DeviceID, Trusted: trusted}, nil
}

// Lock clears the admin unlock flag. Trusted devices stay trusted.
func (s *Service) Lock(ctx context.Context) error {
	if err := s.store.Delete(ctx, AdminAuthKey); err != nil {
		return fmt.Errorf("lock admin: %w", err)
	}
	return nil
}

// AdminUnlocked reports whether admin mode has been unlocked.
func (s *Service) AdminUnlocked(ctx context.Context) (bool, error) {
	return s.flag(ctx, AdminAuthKey)
}

// IsTrustedDevice reports whether deviceID skips the passcode prompt.
func (s *Service) IsTrustedDevice(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	return s.flag(ctx, TrustedDevicePrefix+deviceID)
}

func (s *Service) flag(ctx context.Context, key string) (bool, error) {
	v, found, err := s.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return found && v == flagOn, nil
}

// GenerateToken generates a JWT token for a session
func (s *Service) GenerateToken(c models.Claims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"mode":     string(c.Mode),
		"fleet_id": c.FleetID,
		"exp":      now.Add(s.tokenExp).Unix(),
		"iat":      now.Unix(),
	}
	if c.DeviceID != "" {
		claims["device_id"] = c.DeviceID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// GenerateDeviceID returns a random identifier for a device asking to be trusted.
func (s *Service) GenerateDeviceID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate device id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	modeStr, ok := claims["mode"].(string)
	if !ok || !models.IsValidMode(models.Mode(modeStr)) {
		return nil, ErrInvalidToken
	}

	fleetID, ok := claims["fleet_id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	deviceID, _ := claims["device_id"].(string)

	return &models.Claims{
		Mode:     models.Mode(modeStr),
		FleetID:  fleetID,
		DeviceID: deviceID,
		Exp:      int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
