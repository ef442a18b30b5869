package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopfront/internal/apiclient"
	"shopfront/internal/repos"
	"shopfront/internal/schedule"
	"shopfront/internal/validate"
)

// Registration wizard steps.
const (
	StepCollectInfo = 1
	StepVerifyOtp   = 2
	StepSuccess     = 3

	TotalSteps = 3
)

// RegistrationState is one session's progress through the wizard.
type RegistrationState struct {
	CurrentStep int               `json:"currentStep"`
	TotalSteps  int               `json:"totalSteps"`
	Reached     int               `json:"reached"`
	FormData    map[string]string `json:"formData"`
	OtpEmail    string            `json:"otpEmail"`
}

func NewRegistrationState() *RegistrationState {
	return &RegistrationState{
		CurrentStep: StepCollectInfo,
		TotalSteps:  TotalSteps,
		Reached:     StepCollectInfo,
		FormData:    map[string]string{},
	}
}

// GoToStep moves to step if it is within 1..TotalSteps; otherwise nothing changes.
func (s *RegistrationState) GoToStep(step int) bool {
	if step < 1 || step > s.TotalSteps {
		return false
	}
	s.CurrentStep = step
	if step > s.Reached {
		s.Reached = step
	}
	return true
}

func (s *RegistrationState) Step() int  { return s.CurrentStep }
func (s *RegistrationState) Total() int { return s.TotalSteps }

// Progress is the share of the wizard completed, 0 at the first step and 100 at the last.
func (s *RegistrationState) Progress() float64 {
	if s.TotalSteps < 2 {
		return 100
	}
	return float64(s.CurrentStep-1) / float64(s.TotalSteps-1) * 100
}

type RegistrationForm struct {
	Username        string
	Email           string
	Mobile          string
	Password        string
	ConfirmPassword string
}

// Validate runs the checks that must pass before anything is sent.
func (f RegistrationForm) Validate() error {
	fields := map[string]string{
		"username": f.Username, "email": f.Email,
		"password": f.Password, "confirmPassword": f.ConfirmPassword,
	}
	if missing := validate.Required(fields, "username", "email", "password", "confirmPassword"); len(missing) > 0 {
		return invalid(missing[0], "Please fill in all required fields")
	}
	if f.Password != f.ConfirmPassword {
		return invalid("confirmPassword", "Passwords do not match")
	}
	if _, ok := validate.Email(f.Email); !ok {
		return invalid("email", "Please enter a valid email address")
	}
	if strings.TrimSpace(f.Mobile) != "" {
		if _, ok := validate.Mobile(f.Mobile); !ok {
			return invalid("mobile", "Please enter a valid mobile number with country code")
		}
	}
	return nil
}

// Values is what the wizard keeps between steps. Passwords are not kept.
func (f RegistrationForm) Values() map[string]string {
	v := map[string]string{
		"username": strings.TrimSpace(f.Username),
		"email":    strings.TrimSpace(f.Email),
	}
	if m := strings.TrimSpace(f.Mobile); m != "" {
		v["mobile"] = m
	}
	return v
}

// RegistrationService drives the collect-info → verify-OTP → success wizard.
type RegistrationService struct {
	API           *apiclient.Client
	Slots         repos.SlotStore
	Sched         *schedule.Scheduler
	RedirectDelay time.Duration
	// Log, when set, reports events that happen after the request is gone.
	Log func(action string, fields map[string]any)

	// wizard steps span a remote call, so a session's steps run one at a time
	locks sessionLocks
}

func NewRegistrationService(api *apiclient.Client, slots repos.SlotStore, sched *schedule.Scheduler, redirectDelay time.Duration) *RegistrationService {
	if redirectDelay <= 0 {
		redirectDelay = 3 * time.Second
	}
	return &RegistrationService{API: api, Slots: slots, Sched: sched, RedirectDelay: redirectDelay}
}

// RedirectTarget is where a finished registration sends the visitor.
const RedirectTarget = "/login"

func redirectKey(sessionID string) string { return "registration.redirect:" + sessionID }

// State returns the session's wizard, starting a fresh one when none is
// stored. Unreadable state is discarded and reported as ErrCorruptSlot.
func (s *RegistrationService) State(ctx context.Context, sessionID string) (*RegistrationState, error) {
	raw, err := s.Slots.Get(ctx, sessionID, repos.SlotRegistration)
	if errors.Is(err, repos.ErrSlotEmpty) {
		return NewRegistrationState(), nil
	}
	if err != nil {
		return nil, err
	}
	st := NewRegistrationState()
	if err := json.Unmarshal(raw, st); err != nil || st.TotalSteps != TotalSteps || st.CurrentStep < 1 || st.CurrentStep > TotalSteps {
		if derr := s.Slots.Delete(ctx, sessionID, repos.SlotRegistration); derr != nil {
			return nil, derr
		}
		if err == nil {
			err = fmt.Errorf("step %d of %d out of range", st.CurrentStep, st.TotalSteps)
		}
		return NewRegistrationState(), &CorruptSlotError{Slots: []string{repos.SlotRegistration}, Cause: err}
	}
	if st.FormData == nil {
		st.FormData = map[string]string{}
	}
	return st, nil
}

func (s *RegistrationService) state(ctx context.Context, sessionID string) (*RegistrationState, error) {
	st, err := s.State(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrCorruptSlot) {
		return nil, err
	}
	return st, nil
}

func (s *RegistrationService) save(ctx context.Context, sessionID string, st *RegistrationState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.Slots.Put(ctx, sessionID, repos.SlotRegistration, b)
}

// Navigate handles the previous/next controls. Steps outside 1..TotalSteps
// are ignored, and steps not yet unlocked by a successful call are refused.
func (s *RegistrationService) Navigate(ctx context.Context, sessionID string, step int) (*RegistrationState, error) {
	defer s.locks.lock(sessionID)()
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if step < 1 || step > st.TotalSteps {
		return st, nil
	}
	if step > st.Reached {
		return st, ErrWrongStep
	}
	st.GoToStep(step)
	return st, s.save(ctx, sessionID, st)
}

// Submit validates the form, registers the account and moves to OTP entry.
func (s *RegistrationService) Submit(ctx context.Context, sessionID string, form RegistrationForm) (*RegistrationState, error) {
	defer s.locks.lock(sessionID)()
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.CurrentStep != StepCollectInfo {
		return st, ErrWrongStep
	}
	if err := form.Validate(); err != nil {
		return st, err
	}

	vals := form.Values()
	err = s.API.Register(ctx, apiclient.RegisterRequest{
		Username: vals["username"],
		Email:    vals["email"],
		Mobile:   vals["mobile"],
		Password: form.Password,
	})
	if err != nil {
		return st, remoteFailure(err, "Registration failed. Please try again.")
	}

	st.FormData = vals
	st.OtpEmail = vals["email"]
	st.GoToStep(StepVerifyOtp)
	return st, s.save(ctx, sessionID, st)
}

// Verify checks the emailed code and finishes the wizard. The finished state
// is discarded after RedirectDelay unless Abandon runs first.
func (s *RegistrationService) Verify(ctx context.Context, sessionID, otp string) (*RegistrationState, error) {
	defer s.locks.lock(sessionID)()
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.CurrentStep != StepVerifyOtp {
		return st, ErrWrongStep
	}
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return st, invalid("otp", "Please enter the OTP")
	}

	if err := s.API.Verify(ctx, apiclient.ChannelEmail, st.OtpEmail, otp); err != nil {
		if apiclient.StatusOf(err) == http.StatusBadRequest {
			return st, &RemoteError{Message: "Invalid or expired OTP", Err: err}
		}
		return st, remoteFailure(err, "OTP verification failed. Please try again.")
	}

	st.GoToStep(StepSuccess)
	if err := s.save(ctx, sessionID, st); err != nil {
		return st, err
	}
	s.Sched.Schedule(redirectKey(sessionID), s.RedirectDelay, func() {
		defer s.locks.lock(sessionID)()
		err := s.Slots.Delete(context.Background(), sessionID, repos.SlotRegistration)
		if s.Log != nil {
			f := map[string]any{"sid": sessionID}
			if err != nil {
				f["err"] = err.Error()
			}
			s.Log("register.complete", f)
		}
	})
	return st, nil
}

// Resend asks the server for a fresh code for the same address. The wizard
// step never changes.
func (s *RegistrationService) Resend(ctx context.Context, sessionID string) error {
	defer s.locks.lock(sessionID)()
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}
	if st.OtpEmail == "" {
		return invalid("email", "Please register before requesting a new code")
	}
	if err := s.API.Resend(ctx, apiclient.ChannelEmail, st.OtpEmail); err != nil {
		return remoteFailure(err, "Failed to resend OTP. Please try again.")
	}
	return nil
}

// Abandon drops the wizard and any pending redirect.
func (s *RegistrationService) Abandon(ctx context.Context, sessionID string) error {
	defer s.locks.lock(sessionID)()
	s.Sched.Cancel(redirectKey(sessionID))
	return s.Slots.Delete(ctx, sessionID, repos.SlotRegistration)
}

func (s *RegistrationService) RedirectPending(sessionID string) bool {
	return s.Sched.Pending(redirectKey(sessionID))
}

func (s *RegistrationState) ShowPrev() bool { return s.CurrentStep > 1 }
func (s *RegistrationState) ShowNext() bool { return s.CurrentStep < s.TotalSteps }
