package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Session owns one browser process and one page handle. Not safe for
// concurrent use: every operation queries or mutates the same live page,
// so callers must serialize.
type Session struct {
	engine Engine
	opts   Options

	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc

	proc       *exec.Cmd   // non-nil for remote-attached engines
	procLog    *ringBuffer // tail of the child process output
	profileDir string      // scratch user data dir, removed on close

	closeOnce sync.Once
	closeErr  error
}

// Launch starts a browser for the requested engine and opens one blank
// page. The caller must Close the session on every exit path.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.Defaults()
	s := &Session{engine: opts.Engine, opts: opts}

	profileDir, err := os.MkdirTemp("", "a11yscan-profile-")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	s.profileDir = profileDir

	var allocCtx context.Context
	switch opts.Engine {
	case Chromium:
		flags := append([]chromedp.ExecAllocatorOption{},
			chromedp.DefaultExecAllocatorOptions[:]...)
		flags = append(flags,
			chromedp.Flag("headless", opts.Headless),
			chromedp.UserDataDir(profileDir),
		)
		if opts.ExecPath != "" {
			flags = append(flags, chromedp.ExecPath(opts.ExecPath))
		}
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, flags...)

	case Firefox, WebKit:
		wsURL, err := s.attachRemote(ctx, opts)
		if err != nil {
			s.cleanupFiles()
			return nil, err
		}
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(ctx, wsURL)

	default:
		s.cleanupFiles()
		return nil, fmt.Errorf("unknown engine %q", opts.Engine)
	}

	s.tab, s.tabCancel = chromedp.NewContext(allocCtx)

	// First Run starts the browser process; a missing binary surfaces here.
	if err := chromedp.Run(s.tab); err != nil {
		s.Close()
		return nil, fmt.Errorf("start %s: %w", opts.Engine, err)
	}

	slog.Info("browser session ready", "engine", opts.Engine, "headless", opts.Headless)
	return s, nil
}

// attachRemote starts a non-chromium binary with its remote-debugging
// port and polls until the DevTools websocket endpoint answers.
func (s *Session) attachRemote(ctx context.Context, opts Options) (string, error) {
	binary := opts.ExecPath
	if binary == "" {
		var err error
		binary, err = findBinary(opts.Engine)
		if err != nil {
			return "", err
		}
	}

	port := 9222 + os.Getpid()%1000
	args := []string{fmt.Sprintf("--remote-debugging-port=%d", port)}
	if opts.Headless {
		args = append(args, "--headless")
	}
	if opts.Engine == Firefox {
		args = append(args, "--profile", s.profileDir, "--no-remote")
	}

	s.procLog = newRingBuffer(32 * 1024)
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = s.procLog
	cmd.Stderr = s.procLog
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", opts.Engine, err)
	}
	s.proc = cmd

	client := &http.Client{Timeout: 2 * time.Second}
	versionURL := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	for i := 0; i < 30; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		resp, err := client.Get(versionURL)
		if err != nil {
			continue
		}
		var v struct {
			WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
		}
		err = json.NewDecoder(resp.Body).Decode(&v)
		resp.Body.Close()
		if err == nil && v.WebSocketDebuggerURL != "" {
			return v.WebSocketDebuggerURL, nil
		}
	}
	return "", fmt.Errorf("%s did not expose a DevTools endpoint within 15s; output: %s",
		opts.Engine, s.procLog.String())
}

// Navigate loads the target URL, bounded by timeout.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.opts.NavTimeout
	}
	navCtx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

// Eval runs a script on the page and decodes the result into out.
// Promises are awaited, so async page-side protocols work transparently.
func (s *Session) Eval(ctx context.Context, js string, out any) error {
	evalCtx, cancel := mergeDeadline(s.tab, ctx)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(js, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// WaitNetworkIdle polls document.readyState until the page reports
// complete or the timeout passes. Best effort: a timeout is returned as
// an error but is safe to tolerate.
func (s *Session) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.opts.IdleTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := s.Eval(ctx, `document.readyState`, &state); err != nil {
			return err
		}
		if state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("page not idle after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
	}
}

// ProbeNavigation watches for one more top-level navigation within the
// window. Returns true if one fired, false if the window elapsed quietly.
func (s *Session) ProbeNavigation(ctx context.Context, window time.Duration) (bool, error) {
	if window <= 0 {
		window = s.opts.ProbeWindow
	}
	probeCtx, cancel := context.WithCancel(s.tab)
	defer cancel()

	fired := make(chan struct{}, 1)
	chromedp.ListenTarget(probeCtx, func(ev any) {
		if e, ok := ev.(*page.EventFrameNavigated); ok && e.Frame.ParentID == "" {
			select {
			case fired <- struct{}{}:
			default:
			}
		}
	})

	select {
	case <-fired:
		return true, nil
	case <-time.After(window):
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PressKey dispatches one key event and pauses the settle delay so the
// page's focus handlers run before the next query.
func (s *Session) PressKey(ctx context.Context, key string) error {
	evalCtx, cancel := mergeDeadline(s.tab, ctx)
	defer cancel()
	return chromedp.Run(evalCtx,
		chromedp.KeyEvent(key),
		chromedp.Sleep(s.opts.SettleDelay),
	)
}

// Title returns the current page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	evalCtx, cancel := mergeDeadline(s.tab, ctx)
	defer cancel()
	err := chromedp.Run(evalCtx, chromedp.Title(&title))
	return title, err
}

// Close releases the page, the browser process, and the scratch profile.
// Idempotent; safe on every exit path.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.tab != nil {
			// Graceful page close before the allocator is torn down.
			if err := chromedp.Cancel(s.tab); err != nil {
				slog.Warn("page close failed", "engine", s.engine, "err", err)
			}
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
		if s.proc != nil && s.proc.Process != nil {
			if err := s.proc.Process.Kill(); err == nil {
				s.proc.Wait()
			}
		}
		s.cleanupFiles()
		slog.Info("browser session closed", "engine", s.engine)
	})
	return s.closeErr
}

func (s *Session) cleanupFiles() {
	if s.profileDir != "" {
		if err := os.RemoveAll(s.profileDir); err != nil {
			slog.Warn("profile cleanup failed", "dir", s.profileDir, "err", err)
		}
	}
}

// mergeDeadline runs tab-bound work while honoring the caller's
// cancellation: the returned context is the tab context capped by the
// caller's deadline, and cancelled when the caller is.
func mergeDeadline(tab, caller context.Context) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if dl, ok := caller.Deadline(); ok {
		ctx, cancel = context.WithDeadline(tab, dl)
	} else {
		ctx, cancel = context.WithCancel(tab)
	}
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
