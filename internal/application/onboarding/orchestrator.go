// Package onboarding provisions local state for an identity that an external
// identity provider has just authenticated.
//
// A first-time identity runs a saga: local user, then profile, then the
// encrypted provider credential. When a step fails, the steps that already
// succeeded are undone in reverse order and the external identity is deleted
// last. Compensation is best-effort: failures are logged and every remaining
// step is still attempted, and the caller always sees the original error.
package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/internal/domain/repository"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
	"github.com/collabhub/collabhub/pkg/helpers"
)

const (
	DefaultStepTimeout         = 5 * time.Second
	DefaultCompensationTimeout = 5 * time.Second
)

type Options struct {
	StepTimeout         time.Duration
	CompensationTimeout time.Duration
}

// Outcome describes a finished run. User and Profile are only set when a
// new identity was onboarded.
type Outcome struct {
	UserID  string
	IsNew   bool
	User    *entity.User
	Profile *entity.Profile
	State   State
}

type Orchestrator struct {
	Users       repository.UserRepository
	Profiles    repository.ProfileRepository
	Credentials repository.CredentialStore
	Identities  gateway.IdentityProvider

	// Optional post-commit collaborators.
	Index  gateway.ProfileIndex
	Mailer gateway.Mailer

	Logger *logrus.Logger

	stepTimeout         time.Duration
	compensationTimeout time.Duration
}

func NewOrchestrator(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	credentials repository.CredentialStore,
	identities gateway.IdentityProvider,
	logger *logrus.Logger,
	opts Options,
) *Orchestrator {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = DefaultCompensationTimeout
	}
	return &Orchestrator{
		Users:               users,
		Profiles:            profiles,
		Credentials:         credentials,
		Identities:          identities,
		Logger:              logger,
		stepTimeout:         opts.StepTimeout,
		compensationTimeout: opts.CompensationTimeout,
	}
}

// Onboard dispatches a resolved identity to the matching hook.
func (o *Orchestrator) Onboard(ctx context.Context, ident entity.ExternalIdentity) (*Outcome, error) {
	if strings.TrimSpace(ident.ID) == "" {
		return nil, apperror.Provider("onboarding.onboard", "identity provider returned no identity id", nil)
	}
	if ident.IsNewIdentity {
		return o.OnIdentityResolved(ctx, ident)
	}
	return o.OnSignIn(ctx, ident)
}

// OnIdentityResolved runs the onboarding saga for a first-time identity.
func (o *Orchestrator) OnIdentityResolved(ctx context.Context, ident entity.ExternalIdentity) (*Outcome, error) {
	start := time.Now()
	run := newSaga(ident.ID)
	log := o.log().WithFields(logrus.Fields{
		"identity_id": ident.ID,
		"provider":    ident.Provider,
		"email":       helpers.MaskEmail(ident.PrimaryEmail()),
	})
	defer func() {
		runsTotal.WithLabelValues(pathNew, string(run.state)).Inc()
		runDurationSeconds.WithLabelValues(pathNew).Observe(time.Since(start).Seconds())
	}()

	username, email, err := intendedAttributes(ident)
	owned := false
	if err == nil {
		owned, err = o.ensureAvailable(ctx, ident.ID, username, email)
	}
	if err != nil {
		_ = run.fire(EventRejected)
		log.WithError(err).Info("onboarding rejected")
		return nil, err
	}
	if err := run.fire(EventIdentityResolved); err != nil {
		return nil, apperror.Technical("onboarding.saga", err)
	}
	if owned {
		return o.adopt(ctx, run, log, ident)
	}

	user, err := o.createUser(ctx, ident.ID, username, email)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindConflict && o.hasUser(ctx, ident.ID) {
			return o.adopt(ctx, run, log, ident)
		}
		return nil, o.abort(ctx, run, log, err)
	}
	if err := run.fire(EventUserCreated); err != nil {
		return nil, o.abort(ctx, run, log, apperror.Technical("onboarding.saga", err))
	}

	profile, err := o.createProfile(ctx, ident)
	if err != nil {
		return nil, o.abort(ctx, run, log, err)
	}
	if err := run.fire(EventProfileCreated); err != nil {
		return nil, o.abort(ctx, run, log, apperror.Technical("onboarding.saga", err))
	}

	if ident.HasAccessToken() {
		if err := o.storeCredential(ctx, ident); err != nil {
			return nil, o.abort(ctx, run, log, err)
		}
		if err := run.fire(EventCredentialStored); err != nil {
			return nil, o.abort(ctx, run, log, apperror.Technical("onboarding.saga", err))
		}
	}

	if err := run.fire(EventFinished); err != nil {
		return nil, o.abort(ctx, run, log, apperror.Technical("onboarding.saga", err))
	}
	log.WithField("user_id", user.ID()).Info("onboarding completed")

	o.afterCommit(ctx, log, user, profile)

	return &Outcome{
		UserID:  user.ID(),
		IsNew:   true,
		User:    user,
		Profile: profile,
		State:   run.state,
	}, nil
}

// OnSignIn handles a returning identity. User and profile are left alone;
// a presented access token replaces the stored one.
func (o *Orchestrator) OnSignIn(ctx context.Context, ident entity.ExternalIdentity) (*Outcome, error) {
	start := time.Now()
	state := StateCompleted
	defer func() {
		runsTotal.WithLabelValues(pathReturning, string(state)).Inc()
		runDurationSeconds.WithLabelValues(pathReturning).Observe(time.Since(start).Seconds())
	}()

	if ident.HasAccessToken() {
		if err := o.rotateCredential(ctx, ident); err != nil {
			state = StateRejected
			o.log().WithError(err).WithField("identity_id", ident.ID).Warn("credential refresh failed")
			return nil, err
		}
	}
	return &Outcome{UserID: ident.ID, State: state}, nil
}

func intendedAttributes(ident entity.ExternalIdentity) (valueobject.Username, valueobject.Email, error) {
	username, err := valueobject.NewUsername(ident.Profile.LoginHandle)
	if err != nil {
		return valueobject.Username{}, valueobject.Email{}, err
	}
	if len(ident.Emails) == 0 {
		return valueobject.Username{}, valueobject.Email{}, apperror.Validation("onboarding.email", "email is required")
	}
	email, err := valueobject.NewEmail(ident.PrimaryEmail())
	if err != nil {
		return valueobject.Username{}, valueobject.Email{}, err
	}
	return username, email, nil
}

// ensureAvailable looks the username and email up concurrently. owned is
// true when every hit is the identity's own user.
func (o *Orchestrator) ensureAvailable(ctx context.Context, id string, username valueobject.Username, email valueobject.Email) (owned bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	var byUsername, byEmail *entity.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := o.Users.FindByUsername(gctx, username)
		byUsername, err = found(u, err)
		return err
	})
	g.Go(func() error {
		u, err := o.Users.FindByEmail(gctx, email)
		byEmail, err = found(u, err)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, apperror.Technical("onboarding.duplicate_check", err)
	}

	switch {
	case byUsername == nil && byEmail == nil:
		return false, nil
	case byUsername != nil && byUsername.ID() != id:
		return false, apperror.Conflict("onboarding.duplicate_check", "username already taken", nil)
	case byEmail != nil && byEmail.ID() != id:
		return false, apperror.Conflict("onboarding.duplicate_check", "email already registered", nil)
	}
	return true, nil
}

// found drops NotFound so only real failures remain.
func found(u *entity.User, err error) (*entity.User, error) {
	switch {
	case err == nil:
		return u, nil
	case apperror.KindOf(err) == apperror.KindNotFound:
		return nil, nil
	default:
		return nil, err
	}
}

// hasUser reports whether a local user with id exists. Lookup failures
// count as no.
func (o *Orchestrator) hasUser(ctx context.Context, id string) bool {
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	u, err := o.Users.FindByID(ctx, id)
	return err == nil && u != nil
}

// adopt ends a run whose identity already has a local user, left by a
// concurrent run for the same identity. Nothing is created or undone.
func (o *Orchestrator) adopt(ctx context.Context, run *saga, log *logrus.Entry, ident entity.ExternalIdentity) (*Outcome, error) {
	log.Info("identity already onboarded, continuing as sign-in")
	if ident.HasAccessToken() {
		if err := o.rotateCredential(ctx, ident); err != nil {
			return nil, err
		}
	}
	if err := run.fire(EventAlreadyOnboarded); err != nil {
		return nil, apperror.Technical("onboarding.saga", err)
	}
	return &Outcome{UserID: ident.ID, State: run.state}, nil
}

func (o *Orchestrator) createUser(ctx context.Context, id string, username valueobject.Username, email valueobject.Email) (*entity.User, error) {
	u, err := entity.NewUser(id, username, email)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	saved, err := o.Users.Save(ctx, u)
	if err != nil {
		return nil, keepKind("onboarding.create_user", err)
	}
	return saved, nil
}

func (o *Orchestrator) createProfile(ctx context.Context, ident entity.ExternalIdentity) (*entity.Profile, error) {
	data := profileFromIdentity(ident)
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	p, err := o.Profiles.Create(ctx, data)
	if err != nil {
		return nil, keepKind("onboarding.create_profile", err)
	}
	return p, nil
}

func (o *Orchestrator) storeCredential(ctx context.Context, ident entity.ExternalIdentity) error {
	if ident.ExternalUserID <= 0 {
		return apperror.Provider("onboarding.store_credential", "identity provider returned no external user id", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	if err := o.Credentials.Save(ctx, ident.ID, ident.ExternalUserID, ident.AccessToken); err != nil {
		return keepKind("onboarding.store_credential", err)
	}
	return nil
}

// rotateCredential updates the stored token, creating the row when the
// account was first onboarded without one. Without an external user id the
// stored id is kept, but no new row can be created.
func (o *Orchestrator) rotateCredential(ctx context.Context, ident entity.ExternalIdentity) error {
	const op = "onboarding.rotate_credential"
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	err := o.Credentials.Update(ctx, ident.ID, ident.ExternalUserID, ident.AccessToken)
	if apperror.KindOf(err) == apperror.KindNotFound {
		if ident.ExternalUserID <= 0 {
			return apperror.Provider(op, "identity provider returned no external user id", nil)
		}
		err = o.Credentials.Save(ctx, ident.ID, ident.ExternalUserID, ident.AccessToken)
	}
	if err != nil {
		return keepKind(op, err)
	}
	return nil
}

// abort moves the run into compensation, undoes what the transition table
// lists for the failed state and returns cause unchanged.
func (o *Orchestrator) abort(ctx context.Context, run *saga, log *logrus.Entry, cause error) error {
	failedAt := run.state
	if err := run.fire(EventStepFailed); err != nil {
		log.WithError(err).Error("saga has no failure transition")
		return cause
	}
	log.WithError(cause).WithField("failed_at", string(failedAt)).Warn("onboarding step failed, compensating")

	o.compensate(ctx, run, log)

	if err := run.fire(EventCompensated); err != nil {
		log.WithError(err).Error("saga has no completion transition")
	}
	return cause
}

func (o *Orchestrator) compensate(ctx context.Context, run *saga, log *logrus.Entry) {
	// The caller may already be gone; undo work must still run.
	base := context.WithoutCancel(ctx)
	for _, step := range run.undo {
		cctx, cancel := context.WithTimeout(base, o.compensationTimeout)
		err := o.undo(cctx, step, run.identityID)
		cancel()
		if err != nil {
			compensationFailuresTotal.WithLabelValues(string(step)).Inc()
			log.WithError(apperror.Compensation("onboarding."+string(step), err)).
				WithField("step", string(step)).
				Error("compensation step failed")
			continue
		}
		log.WithField("step", string(step)).Info("compensation step done")
	}
}

func (o *Orchestrator) undo(ctx context.Context, step Compensation, id string) error {
	switch step {
	case CompensateProfile:
		return o.Profiles.Delete(ctx, id)
	case CompensateUser:
		return o.Users.Delete(ctx, id)
	case CompensateIdentity:
		return o.Identities.DeleteIdentity(ctx, id)
	}
	return errors.New("unknown compensation " + string(step))
}

// afterCommit indexes the profile and queues the welcome email. Neither can
// fail the run.
func (o *Orchestrator) afterCommit(ctx context.Context, log *logrus.Entry, u *entity.User, p *entity.Profile) {
	if o.Index != nil {
		ictx, cancel := context.WithTimeout(ctx, o.stepTimeout)
		if err := o.Index.Index(ictx, gateway.NewProfileDocument(u, p)); err != nil {
			log.WithError(err).Warn("profile indexing failed")
		}
		cancel()
	}
	if o.Mailer != nil {
		mctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
		msg := gateway.WelcomeEmail{To: u.Email().String(), Name: p.Name(), Username: u.Username().String()}
		if err := o.Mailer.SendWelcome(mctx, msg); err != nil {
			log.WithError(err).Warn("welcome email not queued")
		}
		cancel()
	}
}

func (o *Orchestrator) log() *logrus.Entry {
	l := o.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "onboarding")
}

// keepKind passes kinded errors through and tags anything else as technical.
func keepKind(op string, err error) error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperror.Technical(op, err)
}
