package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mentorcrm/chat/internal/client"
	"github.com/mentorcrm/chat/internal/model/chat"
)

const replHelp = `Comandos:
  /novo            inicia uma nova sessão
  /sessoes         lista as sessões do modo atual
  /abrir <id>      abre uma sessão anterior
  /apagar <id>     apaga uma sessão
  /ok              fecha o aviso de erro
  /sair            encerra`

// signalled wakes a waiter after a state change without blocking the
// client's notification path.
type signalled chan struct{}

func (s signalled) notify(client.State) {
	select {
	case s <- struct{}{}:
	default:
	}
}

// waitState blocks until cond holds for the client's snapshot.
func waitState(ctx context.Context, c *client.Client, changed signalled, cond func(client.State) bool) (client.State, error) {
	for {
		s := c.Snapshot()
		if cond(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-changed:
		}
	}
}

func turnFinished(s client.State) bool {
	if s.Typing {
		return false
	}
	if s.Error != "" {
		return true
	}
	last, ok := s.LastMessage()
	return ok && last.Role == chat.RoleAssistant
}

func runQuery(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	changed := make(signalled, 1)
	c, err := rt.newClient(changed.notify)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	c.Connect()
	s, err := waitState(ctx, c, changed, func(s client.State) bool { return s.Connected || s.Error != "" })
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if s.Error != "" {
		return errors.New(s.Error)
	}

	if err := c.SendMessage(strings.Join(args, " ")); err != nil {
		return err
	}
	s, err = waitState(ctx, c, changed, turnFinished)
	if err != nil {
		return fmt.Errorf("waiting for reply: %w", err)
	}
	if s.Error != "" {
		return errors.New(s.Error)
	}

	last, _ := s.LastMessage()
	fmt.Fprintln(cmd.OutOrStdout(), rt.renderer.Markdown(last.Content))
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	p := newPrinter(out, rt.renderer)
	c, err := rt.newClient(p.update)
	if err != nil {
		return err
	}
	defer c.Disconnect()

	fmt.Fprintf(out, "chatctl · modo %s · %s\n%s\n\n", rt.cfg.Mode, rt.cfg.Origin, replHelp)

	if resume != "" {
		if err := c.LoadSession(ctx, resume); err != nil {
			return err
		}
	}
	c.Connect()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, c, p, line); quit {
				return nil
			}
		}
	}
}

// handleLine runs one REPL input. It reports whether the user asked to quit.
func handleLine(ctx context.Context, c *client.Client, p *printer, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		// failures surface through the error banner
		_ = c.SendMessage(line)
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/sair":
		return true
	case "/novo":
		c.NewSession()
		p.reset()
	case "/ok":
		c.DismissError()
	case "/sessoes":
		sessions, err := c.ListSessions(ctx)
		if err != nil {
			return false
		}
		now := nowFunc()
		for _, s := range sessions {
			p.println(p.r.Session(s, now))
		}
	case "/abrir":
		if arg == "" {
			p.println(replHelp)
			return false
		}
		p.reset()
		_ = c.LoadSession(ctx, arg)
	case "/apagar":
		if arg == "" {
			p.println(replHelp)
			return false
		}
		_ = c.DeleteSession(ctx, arg)
	default:
		p.println(replHelp)
	}
	return false
}
