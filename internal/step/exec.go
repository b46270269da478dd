package step

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// Лимит на хвост stderr в сообщении об ошибке.
const maxStderrDetail = 4 * 1024

// ExecStep — шаг, запускающий subprocess.
//
// Покрывает скрипты (python3, node), бинарники и обёртки контейнеров:
// всё, что читает stdin и пишет stdout.
//
// Конфигурация (params):
//
//	{
//	    "command": "python3",
//	    "args": ["scripts/yolo_detect.py", "--confidence=0.7"],
//	    "dir": "/opt/app"          // опционально
//	}
//
// Переменные окружения берутся из environment декларации шага и
// добавляются к окружению процесса. Payload элемента пишется в
// stdin; stdout процесса становится новым payload. Ненулевой exit
// code — ошибка с хвостом stderr в детали (до retry/timeout политики
// движка). Отмена ctx убивает процесс.
type ExecStep struct {
	id      string
	command string
	args    []string
	dir     string
	env     []string
}

// NewExecStep создаёт ExecStep из декларации.
func NewExecStep(def *domain.StepDef) (*ExecStep, error) {
	command := params.String(def.Params, "command")
	if command == "" {
		return nil, fmt.Errorf("%w: %s: command is required", ErrInvalidConfig, def.ID)
	}

	env := make([]string, 0, len(def.Environment))
	for k, v := range def.Environment {
		env = append(env, k+"="+v)
	}

	return &ExecStep{
		id:      def.ID,
		command: command,
		args:    params.StringSlice(def.Params, "args"),
		dir:     params.String(def.Params, "dir"),
		env:     env,
	}, nil
}

// ID возвращает идентификатор шага.
func (s *ExecStep) ID() string {
	return s.id
}

// Process запускает subprocess и возвращает элемент с его stdout.
func (s *ExecStep) Process(ctx context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	cmd.Dir = s.dir
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}

	cmd.Stdin = bytes.NewReader(item.Payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v: %s",
			ErrExecFailed, s.command, err, stderrTail(stderr.Bytes()))
	}

	out := item.WithPayload(stdout.Bytes())
	out.Metadata["processor"] = s.id
	return out, nil
}

// stderrTail возвращает хвост stderr для детали ошибки.
func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > maxStderrDetail {
		s = s[len(s)-maxStderrDetail:]
	}
	return s
}
