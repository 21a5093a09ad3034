// Cocinia: point a webcam at your ingredients, confirm what it sees, and get
// a recipe back.
//
// Usage:
//
//	cocinia [-camera gst|stills] [-fps 30] [-chime] [-verbose] [-quiet]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/cocinia/internal/camera"
	"github.com/hammamikhairi/cocinia/internal/chime"
	"github.com/hammamikhairi/cocinia/internal/config"
	"github.com/hammamikhairi/cocinia/internal/conversation"
	"github.com/hammamikhairi/cocinia/internal/display"
	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/kitchen"
	"github.com/hammamikhairi/cocinia/internal/logger"
	"github.com/hammamikhairi/cocinia/internal/pantry"
	"github.com/hammamikhairi/cocinia/internal/recipe"
	"github.com/hammamikhairi/cocinia/internal/scanner"
	"github.com/hammamikhairi/cocinia/internal/vision"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cocinia: %v\n", err)
		os.Exit(2)
	}

	// Direct logs to a file by default so the REPL stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", cfg.LogFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Third-party libraries log through the standard package; keep them
	// out of the terminal too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(cfg.LogLevel, logOut)

	// Set up context, cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire dependencies.
	visionCfg := vision.DefaultConfig()
	visionCfg.ModelPath = cfg.ModelPath
	visionCfg.LabelsPath = cfg.LabelsPath
	visionCfg.ORTLibPath = cfg.ORTLibPath
	session := vision.NewSession(visionCfg, log.Named("vision"))
	defer session.Close()

	var src domain.FrameSource
	switch cfg.Camera {
	case config.CameraStills:
		src = camera.NewStillSource(cfg.StillsDir, time.Second/time.Duration(cfg.FPS), log.Named("camera"))
	default:
		src = camera.NewGstSource(camera.GstConfig{
			BackDevice:  cfg.BackDevice,
			FrontDevice: cfg.FrontDevice,
			Width:       visionCfg.Width,
			Height:      visionCfg.Height,
			FPS:         cfg.FPS,
		}, log.Named("camera"))
	}
	cam := camera.NewManager(src, log.Named("camera"))

	app := &cliApp{
		cfg:     cfg,
		log:     log,
		session: session,
		camera:  cam,
	}

	ui := display.NewUI(app)
	app.ui = ui

	var notifier domain.Notifier = conversation.NewCLINotifier(log, ui.Printf)
	if cfg.Chime {
		player, err := chime.NewPlayer(log)
		if err != nil {
			log.Warn("audio unavailable, chimes disabled: %v", err)
		} else {
			chimes := chime.NewNotifier(notifier, player, log)
			defer chimes.Close()
			notifier = chimes
		}
	}
	app.notifier = notifier

	client := recipe.NewClient(cfg.EndpointURL, log.Named("recipe"),
		recipe.WithToken(cfg.EndpointToken),
		recipe.WithHTTPTimeout(cfg.HTTPTimeout),
	)
	app.kitchen = kitchen.New(pantry.NewStore(log), client, notifier, log,
		kitchen.WithOnRecipe(func(domain.Recipe) {
			// A finished recipe ends the scanning phase.
			app.stopCamera()
		}),
	)
	app.loop = scanner.New(session, cam, log.Named("scanner"),
		scanner.WithFPS(cfg.FPS),
		scanner.WithNotifier(notifier),
		scanner.WithOnClassified(func() {
			app.inferenceErrors.Store(0)
		}),
		scanner.WithOnError(app.onInferenceError),
	)
	app.parser = conversation.NewKeywordParser(log)

	// Warm the model in the background so the first camera start is quick.
	go func() {
		if err := session.LoadModel(ctx); err != nil {
			app.modelFailed.Store(true)
			log.Error("model load: %v", err)
		}
	}()

	fmt.Println(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Escribí 'camara' para empezar a escanear, 'ayuda' para ver los comandos."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal, blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	app.stopCamera()
}

// openLogFile opens path for appending, creating its directory first.
func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type cliApp struct {
	cfg      *config.Config
	log      *logger.Logger
	ui       *display.UI
	notifier domain.Notifier
	parser   domain.IntentParser
	session  *vision.Session
	camera   *camera.Manager
	loop     *scanner.Loop
	kitchen  *kitchen.Kitchen

	modelFailed     atomic.Bool
	inferenceErrors atomic.Int64
}

// Status implements display.StatusSource.
func (a *cliApp) Status() display.Status {
	state, facing := a.camera.State()
	s := display.Status{
		Camera:      state.String(),
		Facing:      facing,
		ModelReady:  a.session.Ready(),
		ModelFailed: a.modelFailed.Load(),
	}
	if a.kitchen != nil {
		s.Generating = a.kitchen.Generating()
		s.Ingredients = len(a.kitchen.Ingredients())
	}
	if a.loop != nil && a.loop.Running() {
		if p, ok := a.loop.Latest(); ok {
			s.Prediction = &p
		}
	}
	return s
}

func (a *cliApp) run(ctx context.Context) {
	uiCh := a.ui.InputChan()

	for {
		var input string
		var ok bool

		select {
		case <-ctx.Done():
			return
		case input, ok = <-uiCh:
			if !ok {
				return
			}
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, input)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}

		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if quit := a.handleIntent(ctx, intent); quit {
			return
		}
	}
}

func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentHelp:
		a.ui.PrintHint(strings.ReplaceAll(conversation.Help, "\n", "\n  "))
	case domain.IntentToggleCamera:
		a.toggleCamera(ctx)
	case domain.IntentFlipCamera:
		a.flipCamera(ctx)
	case domain.IntentAccept:
		a.accept(ctx)
	case domain.IntentAddManual:
		if _, err := a.kitchen.AddManual(ctx, intent.Payload); err == nil {
			a.ui.PrintIngredients(a.kitchen.Ingredients())
		}
	case domain.IntentIncrement:
		a.adjust(ctx, intent.Payload, a.kitchen.Increment)
	case domain.IntentDecrement:
		a.adjust(ctx, intent.Payload, a.kitchen.Decrement)
	case domain.IntentRemove:
		a.adjust(ctx, intent.Payload, a.kitchen.Remove)
	case domain.IntentList:
		a.ui.PrintIngredients(a.kitchen.Ingredients())
		if r, ok := a.kitchen.Recipe(); ok {
			a.ui.Println("")
			a.ui.PrintRecipe(r)
		}
	case domain.IntentGenerate:
		a.generate(ctx)
	case domain.IntentReset:
		a.kitchen.Reset(ctx)
	case domain.IntentCopy:
		a.copyRecipe(ctx)
	case domain.IntentShare:
		a.shareRecipe(ctx)
	case domain.IntentQuit:
		a.ui.PrintHint("¡Buen provecho!")
		return true
	case domain.IntentUnknown:
		a.ui.PrintHint(fmt.Sprintf("No entendí %q. Escribí 'ayuda' para ver los comandos.", intent.Payload))
	}
	return false
}

// ── Camera ───────────────────────────────────────────────────────

func (a *cliApp) toggleCamera(ctx context.Context) {
	state, facing := a.camera.State()
	if state == camera.StateOn {
		a.stopCamera()
		a.ui.PrintHint("Cámara apagada.")
		return
	}
	a.startCamera(ctx, facing)
}

func (a *cliApp) startCamera(ctx context.Context, facing domain.Facing) {
	if err := a.camera.Start(ctx, facing); err != nil {
		a.log.Error("camera start: %v", err)
		a.notifier.NotifyUrgent(ctx, "Error de cámara: revisá que esté conectada y que tengas permisos.")
		return
	}
	if err := a.loop.Start(ctx); err != nil {
		a.modelFailed.Store(true)
		a.camera.Stop()
		return
	}
	a.inferenceErrors.Store(0)
	a.ui.PrintHint(fmt.Sprintf("Cámara %s prendida. Apuntá a un ingrediente y escribí 'agregar'.", display.FacingName(facing)))
}

// maxInferenceErrors is how many consecutive failed classifications stop
// the camera. Any classification that returns, confident or not, resets
// the count.
const maxInferenceErrors = 30

// onInferenceError runs on the scanner goroutine, so stopping the loop is
// handed off to another goroutine.
func (a *cliApp) onInferenceError(err error) {
	if a.inferenceErrors.Add(1) != maxInferenceErrors {
		return
	}
	a.log.Error("inference keeps failing, stopping camera: %v", err)
	go func() {
		a.stopCamera()
		a.notifier.NotifyUrgent(context.Background(), "Error de modelo: la detección falló varias veces seguidas.")
	}()
}

func (a *cliApp) stopCamera() {
	a.loop.Stop()
	if err := a.camera.Stop(); err != nil {
		a.log.Warn("camera stop: %v", err)
	}
}

func (a *cliApp) flipCamera(ctx context.Context) {
	state, _ := a.camera.State()
	if state != camera.StateOn {
		a.ui.PrintHint("La cámara está apagada. Escribí 'camara' para prenderla.")
		return
	}

	// Stop inference first so no cycle reads from the stream being replaced.
	a.loop.Stop()
	if err := a.camera.Flip(ctx); err != nil {
		a.log.Error("camera flip: %v", err)
		a.notifier.NotifyUrgent(ctx, "Error de cámara: no se pudo cambiar de cámara.")
		return
	}
	if err := a.loop.Start(ctx); err != nil {
		a.modelFailed.Store(true)
		a.camera.Stop()
		return
	}
	_, facing := a.camera.State()
	a.ui.PrintHint(fmt.Sprintf("Usando la cámara %s.", display.FacingName(facing)))
}

// ── Ingredients ──────────────────────────────────────────────────

func (a *cliApp) accept(ctx context.Context) {
	pred, ok := a.loop.Latest()
	if !ok || !a.loop.Running() {
		a.ui.PrintHint("Todavía no detecté nada. Prendé la cámara y apuntá a un ingrediente.")
		return
	}
	if _, err := a.kitchen.Accept(ctx, pred); err != nil {
		return
	}
	a.loop.ClearLatest()
	a.ui.PrintIngredients(a.kitchen.Ingredients())
}

func (a *cliApp) adjust(ctx context.Context, payload string, op func(context.Context, int) (domain.Ingredient, error)) {
	pos, err := strconv.Atoi(payload)
	if err != nil {
		a.ui.PrintHint(fmt.Sprintf("%q no es una posición válida.", payload))
		return
	}
	if _, err := op(ctx, pos); err != nil && !errors.Is(err, domain.ErrNotCountable) {
		return
	}
	a.ui.PrintIngredients(a.kitchen.Ingredients())
}

// ── Recipe ───────────────────────────────────────────────────────

func (a *cliApp) generate(ctx context.Context) {
	if a.kitchen.Generating() {
		a.ui.PrintHint("Ya estoy generando una receta, esperá un momento.")
		return
	}
	a.ui.PrintHint("Generando receta…")

	// The request can take a while; keep the prompt responsive.
	go func() {
		r, err := a.kitchen.Generate(ctx)
		if err != nil {
			a.log.Debug("generate: %v", err)
			return
		}
		a.ui.Println("")
		a.ui.PrintRecipe(r)
		a.ui.Println("")
		a.ui.PrintHint("'copiar' o 'compartir' para llevártela, 'nuevo' para empezar otra.")
	}()
}

func (a *cliApp) copyRecipe(ctx context.Context) {
	r, ok := a.kitchen.Recipe()
	if !ok {
		a.ui.PrintHint("Todavía no hay receta.")
		return
	}
	if err := display.CopyToClipboard(r.Raw); err != nil {
		a.log.Warn("copy: %v", err)
		a.notifier.NotifyUrgent(ctx, "Error: no se pudo copiar.")
		return
	}
	a.notifier.Notify(ctx, "Copiado: la receta fue copiada al portapapeles.")
}

func (a *cliApp) shareRecipe(ctx context.Context) {
	r, ok := a.kitchen.Recipe()
	if !ok {
		a.ui.PrintHint("Todavía no hay receta.")
		return
	}
	a.ui.PrintHint("Compartila por WhatsApp:")
	a.ui.Println("  " + display.ShareURL(r.Raw))
}
