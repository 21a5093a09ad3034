package vision

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/cocinia/internal/logger"
)

// modelRunner executes one forward pass. Implementations are not required
// to be safe for concurrent use; Session serialises calls.
type modelRunner interface {
	Run(input []float32) ([]float32, error)
	Close() error
}

// ortRunner runs an ONNX model through ONNX Runtime with preallocated
// input and output tensors.
type ortRunner struct {
	session *ort.AdvancedSession
	in      *ort.Tensor[float32]
	out     *ort.Tensor[float32]
	ownsEnv bool
	log     *logger.Logger
}

// newORTRunner initialises the runtime (once per process), reads the model's
// first input and output names, and binds tensors of shape (1,3,H,W) and
// (1,classes).
func newORTRunner(cfg Config, classes int, log *logger.Logger) (modelRunner, error) {
	r := &ortRunner{log: log}

	if !ort.IsInitialized() {
		lib := cfg.ORTLibPath
		if lib == "" {
			lib = os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")
		}
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		log.Debug("initializing ONNX runtime (lib=%q)", lib)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("init onnxruntime: %w", err)
		}
		r.ownsEnv = true
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read model io info: %w", err)
	}
	if len(inInfo) == 0 || len(outInfo) == 0 {
		r.Close()
		return nil, fmt.Errorf("model %s declares no inputs or outputs", cfg.ModelPath)
	}

	// Trust the model's declared class count over the label table when it
	// is static.
	if dims := outInfo[0].Dimensions; len(dims) > 0 && dims[len(dims)-1] > 0 {
		if n := int(dims[len(dims)-1]); n != classes {
			log.Warn("model declares %d classes, label table has %d", n, classes)
			classes = n
		}
	}

	r.in, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(cfg.Height), int64(cfg.Width)))
	if err != nil {
		r.Close()
		return nil, err
	}
	r.out, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(classes)))
	if err != nil {
		r.Close()
		return nil, err
	}

	r.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{r.in}, []ort.Value{r.out},
		nil,
	)
	if err != nil {
		r.Close()
		return nil, err
	}

	log.Info("model %s loaded (input=%s, output=%s, classes=%d)", cfg.ModelPath, inInfo[0].Name, outInfo[0].Name, classes)
	return r, nil
}

func (r *ortRunner) Run(input []float32) ([]float32, error) {
	data := r.in.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, tensor expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := r.session.Run(); err != nil {
		return nil, err
	}

	logits := r.out.GetData()
	out := make([]float32, len(logits))
	copy(out, logits)
	return out, nil
}

func (r *ortRunner) Close() error {
	if r.session != nil {
		r.session.Destroy()
		r.session = nil
	}
	if r.out != nil {
		r.out.Destroy()
		r.out = nil
	}
	if r.in != nil {
		r.in.Destroy()
		r.in = nil
	}
	if r.ownsEnv {
		r.ownsEnv = false
		return ort.DestroyEnvironment()
	}
	return nil
}
