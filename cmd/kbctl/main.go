package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/kiwimarket/backend-go/app/bootstrap"
	"github.com/kiwimarket/backend-go/internal/auth"
	"github.com/kiwimarket/backend-go/internal/config"
	"github.com/kiwimarket/backend-go/internal/logger"
	"github.com/kiwimarket/backend-go/internal/services"
)

type cli struct {
	Timeout time.Duration `help:"Overall timeout for the command" default:"2m"`

	Ingest    ingestCmd    `cmd:"" help:"Ingest a .csv (question/answer) or .txt file"`
	Add       addCmd       `cmd:"" help:"Add a single question/answer entry"`
	Ask       askCmd       `cmd:"" help:"Ask a question against the knowledge base"`
	Search    searchCmd    `cmd:"" help:"Search the knowledge base without generating an answer"`
	Stats     statsCmd     `cmd:"" help:"Show index statistics"`
	Delete    deleteCmd    `cmd:"" help:"Delete one entry by id"`
	DeleteAll deleteAllCmd `cmd:"" name:"delete-all" help:"Delete every entry in the namespace"`
	Token     tokenCmd     `cmd:"" help:"Issue an admin token for the HTTP API"`
}

// runtime 命令共享的上下文，应用按需构建
type runtime struct {
	ctx context.Context
	out io.Writer
	app *bootstrap.App
}

func (r *runtime) App() (*bootstrap.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := bootstrap.Init()
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *runtime) print(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ingestCmd struct {
	File string `arg:"" type:"existingfile" help:"Path to the file"`
}

func (c *ingestCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	result := app.KnowledgeBase.UploadFile(rt.ctx, &services.FileUpload{Name: filepath.Base(c.File), Content: content})
	return report(rt, result.Success, result.Error, result)
}

type addCmd struct {
	Question string `required:"" help:"Question text"`
	Answer   string `required:"" help:"Answer text"`
}

func (c *addCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	result := app.KnowledgeBase.AddEntry(rt.ctx, c.Question, c.Answer)
	return report(rt, result.Success, result.Error, result)
}

type askCmd struct {
	Question string `arg:"" help:"Question to answer"`
	TopK     int    `name:"top-k" help:"Number of entries used as context"`
	Stream   bool   `help:"Print the answer as it is generated"`
}

func (c *askCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	if c.Stream {
		if appErr := app.Support.AskStream(rt.ctx, c.Question, c.TopK, &stdoutStream{out: rt.out}); appErr != nil {
			return appErr
		}
		_, err := fmt.Fprintln(rt.out)
		return err
	}
	result := app.Support.AskQuestion(rt.ctx, c.Question, c.TopK)
	return report(rt, result.Success, result.Error, result)
}

// stdoutStream 把来源和增量文本直接写到终端
type stdoutStream struct {
	out io.Writer
}

func (s *stdoutStream) Sources(sources []services.SearchResult) error {
	for i, src := range sources {
		if _, err := fmt.Fprintf(s.out, "[%d] %s (%.3f)\n", i+1, src.ID, src.Score); err != nil {
			return err
		}
	}
	return nil
}

func (s *stdoutStream) Delta(text string) error {
	_, err := io.WriteString(s.out, text)
	return err
}

type searchCmd struct {
	Query string `arg:"" help:"Search query"`
	TopK  int    `name:"top-k" help:"Number of results"`
}

func (c *searchCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	result := app.Support.SearchKnowledgeBase(rt.ctx, c.Query, c.TopK)
	return report(rt, result.Success, result.Error, result)
}

type statsCmd struct{}

func (c *statsCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	result := app.KnowledgeBase.GetStats(rt.ctx)
	return report(rt, result.Success, result.Error, result)
}

type deleteCmd struct {
	ID string `arg:"" help:"Entry id"`
}

func (c *deleteCmd) Run(rt *runtime) error {
	app, err := rt.App()
	if err != nil {
		return err
	}
	result := app.KnowledgeBase.DeleteEntry(rt.ctx, c.ID)
	return report(rt, result.Success, result.Error, result)
}

type deleteAllCmd struct {
	Yes bool `help:"Confirm deleting every entry"`
}

func (c *deleteAllCmd) Run(rt *runtime) error {
	if !c.Yes {
		return fmt.Errorf("refusing to delete every entry without --yes")
	}
	app, err := rt.App()
	if err != nil {
		return err
	}
	result := app.KnowledgeBase.DeleteAllEntries(rt.ctx)
	return report(rt, result.Success, result.Error, result)
}

type tokenCmd struct {
	Subject string        `required:"" help:"Operator identity recorded in audit logs"`
	TTL     time.Duration `name:"ttl" help:"Token lifetime (defaults to auth.token_ttl)"`
}

func (c *tokenCmd) Run(rt *runtime) error {
	cfg, err := config.NewConfigLoader().Load()
	if err != nil {
		return err
	}
	ttl := cfg.Auth.TokenTTL
	if c.TTL > 0 {
		ttl = c.TTL
	}
	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
	if err != nil {
		return fmt.Errorf("auth.jwt_secret (KB_AUTH_JWT_SECRET) is required: %w", err)
	}
	token, err := jwtService.GenerateToken(c.Subject, []string{auth.RoleAdmin})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(rt.out, token)
	return err
}

func report(rt *runtime, success bool, message string, result interface{}) error {
	if err := rt.print(result); err != nil {
		return err
	}
	if !success {
		return fmt.Errorf("%s", message)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("kbctl"),
		kong.Description("Operator CLI for the knowledge base service."),
		kong.UsageOnError(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	rt := &runtime{ctx: ctx, out: os.Stdout}
	err := kctx.Run(rt)
	if rt.app != nil {
		rt.app.Shutdown()
	} else {
		logger.Sync()
	}
	kctx.FatalIfErrorf(err)
}
