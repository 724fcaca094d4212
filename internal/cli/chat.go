package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/d00mkeeps/ibhackathon/consts"
	"github.com/d00mkeeps/ibhackathon/internal/chain"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/service"
	"github.com/d00mkeeps/ibhackathon/internal/storage"
	"github.com/d00mkeeps/ibhackathon/models"
	"github.com/d00mkeeps/ibhackathon/pkg/app"
	"github.com/d00mkeeps/ibhackathon/pkg/logger"
)

type chatOptions struct {
	company        string
	conversationID string
	noPersist      bool
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var co chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with CARA in the terminal",
		Long: `Start an interactive analysis conversation. With --company a new conversation is
stored for that company; with --conversation an existing one is resumed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts, co, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&co.company, "company", "", "Company to analyse")
	cmd.Flags().StringVar(&co.conversationID, "conversation", "", "Resume a stored conversation")
	cmd.Flags().BoolVar(&co.noPersist, "no-persist", false, "Do not store this conversation")
	return cmd
}

func runChat(ctx context.Context, opts *rootOptions, co chatOptions, out io.Writer) error {
	cfg := opts.cfg
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	cache := dataset.NewCache(store, logger.Component("dataset"))
	engine, err := app.BuildEngine(ctx, *cfg, cache, logger.Component("chat"))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(co.company)
	if name == "" && co.conversationID == "" {
		if name, err = PromptForCompany(); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}

	convID := co.conversationID
	if convID == "" && name != "" && !co.noPersist {
		resp, err := service.NewCompanyService(store, logger.Component("company_service")).
			ProcessCompany(ctx, models.ProcessCompanyRequest{CompanyName: name})
		if err != nil {
			return err
		}
		convID = resp.ConversationID
	}

	var chainOpts []chain.Option
	if convID != "" {
		rec, err := storage.NewTurnRecorder(store, convID, logger.Component("recorder"))
		if err != nil {
			return err
		}
		defer rec.Close()
		chainOpts = append(chainOpts, chain.WithRecorder(rec))
	}
	c := engine.NewChain(chainOpts...)
	c.Init(ctx)

	r := &repl{chain: c, out: out}
	DisplayWelcomeBanner(out)
	if convID != "" {
		if err := r.resume(ctx, store, convID); err != nil {
			return err
		}
	} else if name != "" {
		r.loadCompany(models.Company{Name: name, CreatedAt: time.Now().UTC().Format(time.RFC3339)})
	}

	for {
		text, err := PromptForMessage()
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.handle(ctx, text) {
			return nil
		}
	}
}

// repl drives one chain from terminal input.
type repl struct {
	chain *chain.Chain
	out   io.Writer
}

type resumeStore interface {
	GetCompanyByConversation(ctx context.Context, conversationID string) (*models.Company, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
}

func (r *repl) resume(ctx context.Context, store resumeStore, convID string) error {
	msgs, err := store.ListMessages(ctx, convID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if err := r.chain.RestoreHistory(msgs); err != nil {
		return err
	}
	if len(msgs) > 0 {
		fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("Restored %d messages.", len(msgs))))
	}

	company, err := store.GetCompanyByConversation(ctx, convID)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}
	if company != nil {
		r.loadCompany(*company)
	}
	return nil
}

func (r *repl) loadCompany(company models.Company) {
	if err := r.chain.LoadCompanyContext(company); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return
	}
	renderKV(r.out, "Company", company.Name)
	renderAttributes(r.out, company.Attributes)
	if m := r.chain.Match(); m != nil {
		renderKV(r.out, "Dataset match", fmt.Sprintf("%s (%s)", m.Name, m.Ticker))
	} else {
		renderKV(r.out, "Dataset match", warningStyle.Render("none"))
	}
	fmt.Fprintln(r.out)
}

// handle runs one line of input and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, text string) bool {
	line := strings.TrimSpace(text)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/clear":
		r.chain.ClearCompanyContext()
		fmt.Fprintln(r.out, mutedStyle.Render("Company context cleared."))
		return false
	case "/company":
		if arg == "" {
			fmt.Fprintln(r.out, warningStyle.Render("usage: /company NAME"))
			return false
		}
		r.loadCompany(models.Company{Name: arg, CreatedAt: time.Now().UTC().Format(time.RFC3339)})
		return false
	case "/ticker":
		found, err := r.chain.LoadCompanyByTicker(arg)
		switch {
		case err != nil:
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		case !found:
			fmt.Fprintln(r.out, warningStyle.Render(fmt.Sprintf("Ticker %q not in the comparison dataset.", arg)))
		default:
			m := r.chain.Match()
			renderKV(r.out, "Dataset match", fmt.Sprintf("%s (%s)", m.Name, m.Ticker))
		}
		return false
	}

	sr, err := r.chain.ProcessMessage(ctx, text)
	if errors.Is(err, chain.ErrEmptyMessage) {
		fmt.Fprintln(r.out, warningStyle.Render("Message cannot be empty."))
		return false
	}
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return false
	}
	if _, err := streamReply(r.out, sr); err != nil {
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
	}
	return false
}

// streamReply prints fragments as they arrive and returns the full reply.
func streamReply(w io.Writer, sr *schema.StreamReader[*models.Event]) (string, error) {
	defer sr.Close()
	fmt.Fprint(w, assistantStyle.Render("CARA:")+" ")

	var reply strings.Builder
	for {
		ev, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return reply.String(), nil
		}
		if err != nil {
			fmt.Fprintln(w)
			return reply.String(), err
		}

		switch ev.Type {
		case consts.EventContent:
			reply.WriteString(ev.Text())
			fmt.Fprint(w, ev.Text())
		case consts.EventError:
			p, _ := ev.Err()
			msg := p.Message
			if p.RetryAfter > 0 {
				msg = fmt.Sprintf("%s (retry in %ds)", msg, p.RetryAfter)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, errorStyle.Render(msg))
		}
	}
}
