package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/munai7/TrustGate/internal/models"
	"github.com/munai7/TrustGate/internal/risk"
	pkglogger "github.com/munai7/TrustGate/pkg/logger"
)

// StatusMFARequired is returned by a successful BeginAuthentication
const StatusMFARequired = "MFA_REQUIRED"

// CredentialVerifier checks a username/password pair
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

// TokenIssuer signs session tokens for approved logins
type TokenIssuer interface {
	IssueSessionToken(username, role string, risk models.RiskLabel) (string, error)
}

// AttemptLedger is the append-only attempt history
type AttemptLedger interface {
	Append(ctx context.Context, record *models.AttemptRecord) error
	Latest(ctx context.Context, username string) (*models.AttemptRecord, error)
}

// CountryResolver maps a source address to an ISO country code
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// AuthServiceDeps collects the collaborators of AuthService
type AuthServiceDeps struct {
	Blocks     *BlockService
	Limiter    *RateLimitService
	Challenges *ChallengeService
	Alerts     *AlertService
	Verifier   CredentialVerifier
	Issuer     TokenIssuer
	Ledger     AttemptLedger
	Engine     *risk.Engine
	Geo        CountryResolver // optional
	Audit      *pkglogger.AuditLogger
	Recorder   Recorder
	Logger     *slog.Logger

	BlockThreshold int
}

// AuthService runs the two-step login: begin issues a challenge, resolve
// scores it and decides.
type AuthService struct {
	blocks         *BlockService
	limiter        *RateLimitService
	challenges     *ChallengeService
	alerts         *AlertService
	verifier       CredentialVerifier
	issuer         TokenIssuer
	ledger         AttemptLedger
	engine         *risk.Engine
	geo            CountryResolver
	audit          *pkglogger.AuditLogger
	recorder       Recorder
	logger         *slog.Logger
	blockThreshold int
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	engine := deps.Engine
	if engine == nil {
		engine = risk.NewEngine(nil)
	}
	return &AuthService{
		blocks:         deps.Blocks,
		limiter:        deps.Limiter,
		challenges:     deps.Challenges,
		alerts:         deps.Alerts,
		verifier:       deps.Verifier,
		issuer:         deps.Issuer,
		ledger:         deps.Ledger,
		engine:         engine,
		geo:            deps.Geo,
		audit:          deps.Audit,
		recorder:       recorderOrNoop(deps.Recorder),
		logger:         deps.Logger,
		blockThreshold: deps.BlockThreshold,
	}
}

// BeginRequest is one login attempt with its out-of-band signals
type BeginRequest struct {
	Username      string
	Password      string
	Device        string
	Country       string
	SourceAddress string
}

type BeginResult struct {
	Status      string `json:"status"`
	ChallengeID string `json:"push_id"`
}

type ResolveResult struct {
	Outcome    string             `json:"status"`
	RuleLabel  models.RiskLabel   `json:"rule_risk"`
	MLLabel    models.RiskLabel   `json:"ml_risk"`
	FinalLabel models.RiskLabel   `json:"final_risk"`
	Changes    models.ChangeFlags `json:"changes"`
	Score      int                `json:"score"`
	Token      string             `json:"token,omitempty"`
}

func (req *BeginRequest) validate() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	req.Device = strings.TrimSpace(req.Device)

	switch {
	case req.Username == "":
		return fmt.Errorf("%w: username is required", models.ErrValidation)
	case req.Password == "":
		return fmt.Errorf("%w: password is required", models.ErrValidation)
	case req.SourceAddress == "":
		return fmt.Errorf("%w: source address is required", models.ErrValidation)
	}
	return nil
}

// BeginAuthentication checks the block list and rate window, verifies
// credentials and opens a pending challenge against the last recorded attempt.
func (s *AuthService) BeginAuthentication(ctx context.Context, req BeginRequest) (*BeginResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	blocked, err := s.blocks.IsBlocked(ctx, req.SourceAddress)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.deny(ctx, req, "blocked")
		return nil, models.ErrBlocked
	}

	admitted, err := s.limiter.Admit(ctx, req.SourceAddress)
	if err != nil {
		return nil, err
	}
	if !admitted {
		s.deny(ctx, req, "rate_limited")
		return nil, models.ErrRateLimitExceeded
	}

	if req.Country == "" {
		req.Country = s.resolveCountry(req.SourceAddress)
	}

	current := models.AttemptSignal{
		Username:      req.Username,
		SourceAddress: req.SourceAddress,
		Country:       req.Country,
		Device:        req.Device,
	}

	user, err := s.verifier.Verify(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.credentialFailure(ctx, current, err)
	}

	last := current
	failed := 0
	prev, err := s.ledger.Latest(ctx, req.Username)
	switch {
	case err == nil:
		last = prev.Signal()
		failed = prev.FailedAttemptCount
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	challengeID, err := s.challenges.Create(ctx, current, last, failed, user.Role)
	if err != nil {
		return nil, err
	}

	s.recorder.IncDecision("begin", "challenge")
	s.audit.LogLoginStarted(ctx, req.Username, req.SourceAddress, challengeID)

	return &BeginResult{Status: StatusMFARequired, ChallengeID: challengeID}, nil
}

// credentialFailure records a wrong password in the ledger and maps every
// verifier rejection to ErrInvalidCredentials. Unknown users leave no record.
func (s *AuthService) credentialFailure(ctx context.Context, signal models.AttemptSignal, err error) error {
	if !errors.Is(err, models.ErrInvalidCredentials) {
		return err
	}

	s.recorder.IncDecision("begin", "invalid_credentials")
	s.audit.LogCredentialFailure(ctx, signal.Username, signal.SourceAddress)

	if errors.Is(err, ErrUnknownUser) {
		return models.ErrInvalidCredentials
	}

	if appendErr := s.ledger.Append(ctx, models.NewAttemptRecord(signal, 1, models.LabelFailedAuth)); appendErr != nil {
		return appendErr
	}
	return models.ErrInvalidCredentials
}

func (s *AuthService) deny(ctx context.Context, req BeginRequest, reason string) {
	s.recorder.IncDecision("begin", reason)
	s.audit.LogLoginDenied(ctx, req.Username, req.SourceAddress, reason)
}

// resolveCountry is best effort; an unresolvable address yields ""
func (s *AuthService) resolveCountry(ip string) string {
	if s.geo == nil {
		return ""
	}
	country, err := s.geo.CountryCode(ip)
	if err != nil {
		s.logger.Debug("country lookup failed", slog.Any("error", err))
		return ""
	}
	return country
}

// ResolveChallenge consumes the challenge, scores it, applies escalation and
// records the attempt. An approved challenge returns a session token.
func (s *AuthService) ResolveChallenge(ctx context.Context, challengeID string, decision models.Decision) (*ResolveResult, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: action must be allow or deny", models.ErrValidation)
	}

	challenge, err := s.challenges.Consume(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	approved := decision == models.DecisionAllow
	failed := challenge.FailedAttemptCount
	if !approved {
		failed++
	}

	current := challenge.Current()
	assessment := s.engine.Evaluate(current, challenge.Last(), failed)
	s.recorder.IncAssessment(assessment.FinalLabel.String())

	if risk.ShouldBlock(assessment.FinalLabel, failed, s.blockThreshold) {
		if err := s.escalate(ctx, challenge, assessment, decision); err != nil {
			return nil, err
		}
	}

	if risk.IsCriticalOverride(assessment.FinalLabel, approved) {
		alert := newAlert(challenge, assessment, decision, models.AlertReasonCriticalOverride)
		if err := s.alerts.Emit(ctx, alert); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.Append(ctx, models.NewAttemptRecord(current, failed, assessment.FinalLabel.String())); err != nil {
		return nil, err
	}

	result := &ResolveResult{
		Outcome:    string(decision),
		RuleLabel:  assessment.RuleLabel,
		MLLabel:    assessment.MLLabel,
		FinalLabel: assessment.FinalLabel,
		Changes:    assessment.Changes,
		Score:      assessment.Score,
	}

	if approved {
		role := challenge.Role
		if role == "" {
			role = models.RoleUser
		}
		token, err := s.issuer.IssueSessionToken(challenge.Username, role, assessment.FinalLabel)
		if err != nil {
			s.logger.Error("failed to issue session token", slog.String("username", challenge.Username), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		result.Token = token
	}

	s.recorder.IncDecision("resolve", string(decision))
	s.audit.LogChallengeResolved(ctx, challenge.Username, challenge.CurrentAddress, string(decision), assessment.FinalLabel.String(), failed)

	return result, nil
}

func (s *AuthService) escalate(ctx context.Context, challenge *models.PendingChallenge, assessment models.RiskAssessment, decision models.Decision) error {
	duration, err := s.blocks.BlockForLabel(ctx, challenge.CurrentAddress, assessment.FinalLabel)
	if err != nil {
		return err
	}
	s.recorder.IncBlock(assessment.FinalLabel.String())
	s.audit.LogBlockApplied(ctx, challenge.Username, challenge.CurrentAddress, assessment.FinalLabel.String(), duration)

	return s.alerts.Emit(ctx, newAlert(challenge, assessment, decision, models.AlertReasonEscalation))
}

func newAlert(challenge *models.PendingChallenge, assessment models.RiskAssessment, decision models.Decision, reason string) *models.Alert {
	return &models.Alert{
		Username:      challenge.Username,
		SourceAddress: challenge.CurrentAddress,
		Country:       challenge.CurrentCountry,
		Device:        challenge.CurrentDevice,
		Outcome:       string(decision),
		RuleLabel:     assessment.RuleLabel,
		MLLabel:       assessment.MLLabel,
		Reason:        reason,
	}
}
