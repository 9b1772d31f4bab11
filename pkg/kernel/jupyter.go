package kernel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nbrunner/pkg/executor/runner"
)

// JupyterRegistry asks the local Jupyter installation for its kernelspecs.
type JupyterRegistry struct {
	Bin    string
	runner runner.JobRunner
}

var _ Registry = (*JupyterRegistry)(nil)

func NewJupyterRegistry(bin string, r runner.JobRunner) *JupyterRegistry {
	if bin == "" {
		bin = "jupyter"
	}
	return &JupyterRegistry{Bin: bin, runner: r}
}

// Kernels runs `jupyter kernelspec list --json` and returns the kernel
// names in the order Jupyter printed them.
func (j *JupyterRegistry) Kernels(ctx context.Context) ([]string, error) {
	res := j.runner.Run(ctx, j.Bin, []string{"kernelspec", "list", "--json"})
	if res.Failed() {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" && res.Error != nil {
			msg = res.Error.Error()
		}
		return nil, fmt.Errorf("listing kernelspecs: %s", msg)
	}
	return parseKernelSpecs([]byte(res.Stdout))
}

// parseKernelSpecs walks the "kernelspecs" object token by token;
// unmarshalling into a map would lose the listing order.
func parseKernelSpecs(data []byte) ([]string, error) {
	var doc struct {
		KernelSpecs json.RawMessage `json:"kernelspecs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding kernelspec list: %w", err)
	}
	if len(doc.KernelSpecs) == 0 || string(doc.KernelSpecs) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc.KernelSpecs))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding kernelspec list: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decoding kernelspec list: kernelspecs is not an object")
	}

	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding kernelspec list: %w", err)
		}
		name, _ := tok.(string)

		var spec json.RawMessage
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decoding kernelspec %q: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}
