package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/infernoscraper/inferno/internal/api"
)

// CheckHealth probes the service and updates the indicator. A waking
// indicator stays until the probe completes.
func (c *Coordinator) CheckHealth(ctx context.Context) ServerStatus {
	c.mu.Lock()
	if c.serverStatus != ServerWaking {
		c.serverStatus = ServerChecking
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("health", func() (any, error) {
		return c.svc.Health(ctx)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.serverStatus = ServerOffline
		c.healthLog.Do(func() { c.logger.Warn("Health check failed", "err", err) })
		return c.serverStatus
	}

	c.serverStatus = ServerOnline
	h := v.(api.Health)
	c.logger.Debug("Health check ok", "status", h.Status, "uptime", h.Uptime)
	return c.serverStatus
}

// Wake nudges a sleeping service and schedules a health recheck
func (c *Coordinator) Wake(ctx context.Context) {
	c.mu.Lock()
	c.serverStatus = ServerWaking
	c.mu.Unlock()

	if err := c.svc.Wake(ctx); err != nil {
		c.logger.Warn("Wake request failed", "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wakeTimer != nil {
		c.wakeTimer.Stop()
	}
	recheckCtx := c.runCtx
	if recheckCtx == nil {
		recheckCtx = context.Background()
	}
	c.wakeTimer = time.AfterFunc(c.opts.WakeRecheck, func() {
		c.CheckHealth(recheckCtx)
	})
}

// Login authenticates with the service. After LoginMaxAttempts wrong
// passwords further attempts fail locally for LoginLockout.
func (c *Coordinator) Login(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return errors.New("zadaj heslo")
	}

	c.mu.Lock()
	if wait := c.blockedForLocked(); wait > 0 {
		c.mu.Unlock()
		return blockedError(wait)
	}
	c.mu.Unlock()

	_, err := c.svc.Login(ctx, password)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case errors.Is(err, api.ErrInvalidPassword):
		c.failedLogins++
		c.logger.Warn("Login rejected", "attempt", c.failedLogins)
		if c.failedLogins >= c.opts.LoginMaxAttempts {
			c.failedLogins = 0
			c.blockedUntil = c.opts.Now().Add(c.opts.LoginLockout)
			return blockedError(c.opts.LoginLockout)
		}
		return err
	case errors.Is(err, api.ErrTooManyAttempts):
		c.blockedUntil = c.opts.Now().Add(c.opts.LoginLockout)
		return err
	case err != nil:
		c.logger.Error("Login failed", "err", err)
		return err
	}

	c.failedLogins = 0
	c.blockedUntil = time.Time{}
	c.authRequired = false
	c.notifyLocked(NoticeSuccess, "Prihlásenie úspešné.")
	return nil
}

func (c *Coordinator) blockedForLocked() time.Duration {
	if c.blockedUntil.IsZero() {
		return 0
	}
	wait := c.blockedUntil.Sub(c.opts.Now())
	if wait <= 0 {
		c.blockedUntil = time.Time{}
		return 0
	}
	return wait
}

func blockedError(wait time.Duration) error {
	secs := int(math.Ceil(wait.Seconds()))
	return fmt.Errorf("%w, skús znova o %d s", ErrLoginBlocked, secs)
}

// LoginBlockedFor returns the remaining lockout, zero when login is allowed
func (c *Coordinator) LoginBlockedFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockedForLocked()
}

// Logout ends the session locally and on the server
func (c *Coordinator) Logout(ctx context.Context) error {
	err := c.svc.Logout(ctx)
	if err != nil && !errors.Is(err, api.ErrUnauthorized) {
		c.logger.Warn("Logout request failed", "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.authRequired = true
	c.teardownLocked()
	c.logger.Info("Logged out")
	return nil
}

// CheckAuth confirms the held token is still accepted
func (c *Coordinator) CheckAuth(ctx context.Context) (bool, error) {
	if !c.svc.HasToken() {
		c.mu.Lock()
		c.authRequired = true
		c.mu.Unlock()
		return false, nil
	}

	ok, err := c.svc.AuthStatus(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if c.handleErrLocked(err) {
			return false, nil
		}
		return false, err
	}
	if !ok {
		c.authRequired = true
		c.teardownLocked()
	}
	return ok, nil
}

// SendFeedback forwards a keyword suggestion to the service
func (c *Coordinator) SendFeedback(ctx context.Context, keyword string) error {
	err := c.svc.SendFeedback(ctx, keyword)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		return err
	}
	c.notifyLocked(NoticeSuccess, "Ďakujeme za spätnú väzbu.")
	return nil
}
