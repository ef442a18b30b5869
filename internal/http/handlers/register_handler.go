package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"shopfront/internal/apiclient"
	applog "shopfront/internal/log"
	"shopfront/internal/notify"
	"shopfront/internal/services"
	"shopfront/internal/validate"
	"shopfront/internal/view"
)

// RegisterHandler serves the three-step sign-up wizard: details, email OTP, done.
type RegisterHandler struct {
	Reg           *services.RegistrationService
	Toasts        *notify.Center
	RedirectDelay time.Duration
}

func (h *RegisterHandler) Form(c *fiber.Ctx) error {
	sid := ensureSID(c)
	ctx := c.UserContext()
	if c.Query("restart") != "" {
		if err := h.Reg.Abandon(ctx, sid); err != nil {
			applog.Error(c, "register.abandon.fail", err, nil)
		}
		return c.Redirect("/register")
	}
	st, err := h.Reg.State(ctx, sid)
	if errors.Is(err, services.ErrCorruptSlot) {
		applog.Security(c, "storage.corrupt", map[string]any{"slot": "registration"})
		h.Toasts.Push(sid, notify.Warning("Storage reset", services.UserMessage(err)))
	} else if err != nil {
		applog.Error(c, "register.load.fail", err, nil)
		return notFound(c, fiber.StatusInternalServerError, "Could not load registration")
	}
	return h.page(c, st, "", nil)
}

func (h *RegisterHandler) page(c *fiber.Ctx, st *services.RegistrationState, errMsg string, form map[string]string) error {
	if form == nil {
		form = st.FormData
	}
	secs := int(h.RedirectDelay.Round(time.Second) / time.Second)
	if st.CurrentStep == services.StepSuccess {
		c.Set("Refresh", strconv.Itoa(secs)+"; url="+services.RedirectTarget)
	}
	return render(c, "register", fiber.Map{
		"Page":            "register",
		"Wizard":          view.Wizard(st),
		"Form":            form,
		"OtpEmail":        st.OtpEmail,
		"Err":             errMsg,
		"RedirectTo":      services.RedirectTarget,
		"RedirectSeconds": secs,
	})
}

func (h *RegisterHandler) Submit(c *fiber.Ctx) error {
	sid := ensureSID(c)
	form := services.RegistrationForm{
		Username:        c.FormValue("username"),
		Email:           c.FormValue("email"),
		Mobile:          c.FormValue("mobile"),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirmPassword"),
	}
	st, err := h.Reg.Submit(c.UserContext(), sid, form)
	if err != nil {
		if errors.Is(err, services.ErrWrongStep) {
			return c.Redirect("/register")
		}
		if st == nil {
			applog.Error(c, "register.submit.fail", err, nil)
			return notFound(c, fiber.StatusInternalServerError, "Could not load registration")
		}
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			applog.Security(c, "validation.fail", map[string]any{"field": ve.Field, "form": "register"})
			c.Status(fiber.StatusBadRequest)
		} else {
			applog.Info(c, "register.submit.fail", map[string]any{"email": form.Email, "status": apiclient.StatusOf(err)})
			c.Status(remoteStatus(err))
		}
		return h.page(c, st, services.UserMessage(err), form.Values())
	}

	applog.Audit(c, "register.submit", map[string]any{"email": st.OtpEmail})
	h.Toasts.Push(sid, notify.Success("Registered", "Registration successful! Please check your email for the OTP."))
	return c.Redirect("/register")
}

// Step handles the previous/next controls.
func (h *RegisterHandler) Step(c *fiber.Ctx) error {
	sid := ensureSID(c)
	n, ok := validate.Step(c.Params("n"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "step"})
		return c.Redirect("/register")
	}
	_, err := h.Reg.Navigate(c.UserContext(), sid, n)
	switch {
	case errors.Is(err, services.ErrWrongStep):
		h.Toasts.Push(sid, notify.Warning("Not yet", services.UserMessage(err)))
	case err != nil:
		applog.Error(c, "register.step.fail", err, map[string]any{"step": n})
	}
	return c.Redirect("/register")
}

func (h *RegisterHandler) Verify(c *fiber.Ctx) error {
	sid := ensureSID(c)
	ctx := c.UserContext()
	raw := c.FormValue("otp")

	st, err := h.Reg.Verify(ctx, sid, raw)
	if err != nil {
		if errors.Is(err, services.ErrWrongStep) {
			return c.Redirect("/register")
		}
		if st == nil {
			applog.Error(c, "register.verify.fail", err, nil)
			return notFound(c, fiber.StatusInternalServerError, "Could not load registration")
		}
		if services.IsValidation(err) {
			applog.Security(c, "validation.fail", map[string]any{"field": "otp"})
			c.Status(fiber.StatusBadRequest)
		} else {
			applog.Security(c, "register.verify.fail", map[string]any{"email": st.OtpEmail, "status": apiclient.StatusOf(err)})
			c.Status(remoteStatus(err))
		}
		return h.page(c, st, services.UserMessage(err), nil)
	}

	applog.Audit(c, "register.verify", map[string]any{"email": st.OtpEmail})
	h.Toasts.Push(sid, notify.Success("Verified", "Email verified successfully!"))
	return c.Redirect("/register")
}

// Resend never moves the wizard; the outcome is reported as a toast.
func (h *RegisterHandler) Resend(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Reg.Resend(c.UserContext(), sid); err != nil {
		applog.Info(c, "register.resend.fail", map[string]any{"status": apiclient.StatusOf(err)})
		h.Toasts.Push(sid, notify.Error("Error", services.UserMessage(err)))
		if wantsJSON(c) {
			return c.Status(remoteStatus(err)).JSON(fiber.Map{"error": services.UserMessage(err)})
		}
		return c.Redirect("/register")
	}
	applog.Audit(c, "register.resend", nil)
	h.Toasts.Push(sid, notify.Success("OTP sent", "A new OTP has been sent to your email"))
	if wantsJSON(c) {
		return c.JSON(fiber.Map{"ok": true})
	}
	return c.Redirect("/register")
}

// remoteStatus maps a failed remote call onto our response status. The
// server's 4xx answers are the visitor's problem; anything else is ours.
func remoteStatus(err error) int {
	if services.IsValidation(err) {
		return fiber.StatusBadRequest
	}
	if st := apiclient.StatusOf(err); st >= 400 && st < 500 {
		return fiber.StatusBadRequest
	}
	return fiber.StatusBadGateway
}
