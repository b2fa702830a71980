// Package script implements the Script trigger sink: ".tengo" scripts run
// in-process via the Tengo VM (github.com/d5/tengo/v2, a teacher
// dependency); anything else is invoked as a subprocess whose last stdout
// line must parse as "true"/"false" (spec.md §6, grounded on
// original_source/src/utils/script's ScriptError variants and
// tests/integration/notifications/script.rs).
package script

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/d5/tengo/v2"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

const defaultTimeout = 30 * time.Second

// Sink invokes a configured script and turns its boolean result into a
// Send call's success/failure — scripts are predicates gating whether the
// notification is considered delivered, matching the source's "script
// trigger" semantics (title/body are passed through as context, not
// necessarily displayed by the script).
type Sink struct {
	cfg models.ScriptConfig
}

func New(cfg models.ScriptConfig) (*Sink, error) {
	if cfg.ScriptPath == "" {
		return nil, notify.ConfigError("script", "missing script_path")
	}
	return &Sink{cfg: cfg}, nil
}

// Send runs the script with title/body available as vars["title"]/
// vars["body"] (Tengo) or as the CHAINMONITOR_TITLE/CHAINMONITOR_BODY
// environment variables (subprocess), and fails the send if the script
// evaluates to false or errors.
func (s *Sink) Send(title, body string) error {
	ctx := context.Background()
	timeout := defaultTimeout
	if s.cfg.TimeoutMs > 0 {
		timeout = time.Duration(s.cfg.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	variables := map[string]string{"title": title, "body": body}

	var ok bool
	var err error
	if strings.HasSuffix(s.cfg.ScriptPath, ".tengo") {
		ok, err = runTengo(ctx, s.cfg, variables)
	} else {
		ok, err = runSubprocess(ctx, s.cfg, variables)
	}
	if err != nil {
		return err
	}
	if !ok {
		return notify.ScriptExecutionError("script evaluated to false", nil)
	}
	return nil
}

func runTengo(ctx context.Context, cfg models.ScriptConfig, variables map[string]string) (bool, error) {
	src, err := readScript(cfg.ScriptPath)
	if err != nil {
		return false, err
	}

	s := tengo.NewScript(src)
	vars := make(map[string]interface{}, len(variables))
	for k, v := range variables {
		vars[k] = v
	}
	if err := s.Add("vars", vars); err != nil {
		return false, notify.ScriptParseError("binding script variables: " + err.Error())
	}
	for i, arg := range cfg.Args {
		if err := s.Add(argName(i), arg); err != nil {
			return false, notify.ScriptParseError("binding script argument: " + err.Error())
		}
	}

	compiled, err := s.RunContext(ctx)
	if err != nil {
		return false, notify.ScriptExecutionError("running tengo script "+cfg.ScriptPath, err)
	}

	if !compiled.IsDefined("result") {
		return false, notify.ScriptParseError("tengo script did not set 'result'")
	}
	return compiled.Get("result").Bool(), nil
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}

func runSubprocess(ctx context.Context, cfg models.ScriptConfig, variables map[string]string) (bool, error) {
	if _, err := os.Stat(cfg.ScriptPath); err != nil {
		return false, notify.ScriptNotFoundError(cfg.ScriptPath)
	}

	interpreter, args := interpreterFor(cfg.ScriptPath)
	args = append(args, cfg.Args...)

	var name string
	if interpreter == "" {
		name = cfg.ScriptPath
	} else {
		name = interpreter
		args = append([]string{cfg.ScriptPath}, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = envFromVariables(variables)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.Error); ok {
			return false, notify.ScriptSystemError("interpreter not found for "+cfg.ScriptPath, err)
		}
		return false, notify.ScriptExecutionError("running script "+cfg.ScriptPath, err)
	}

	return parseLastLine(stdout.String())
}

// interpreterFor maps a script's extension to the interpreter binary that
// runs it; scripts with no recognized extension are assumed directly
// executable.
func interpreterFor(path string) (string, []string) {
	switch {
	case strings.HasSuffix(path, ".py"):
		return "python3", nil
	case strings.HasSuffix(path, ".js"):
		return "node", nil
	case strings.HasSuffix(path, ".sh"):
		return "bash", nil
	default:
		return "", nil
	}
}

func envFromVariables(variables map[string]string) []string {
	env := make([]string, 0, len(variables))
	for k, v := range variables {
		env = append(env, "CHAINMONITOR_"+strings.ToUpper(k)+"="+v)
	}
	return env
}

// parseLastLine evaluates the last non-empty line of stdout as a
// true/false boolean, surfacing a ScriptParseError if it is neither.
func parseLastLine(output string) (bool, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, notify.ScriptParseError("expected 'true' or 'false', got: " + line)
		}
	}
	return false, notify.ScriptParseError("script produced no output")
}

func readScript(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notify.ScriptNotFoundError(path)
		}
		return nil, notify.ScriptSystemError("reading script "+path, err)
	}
	return data, nil
}
