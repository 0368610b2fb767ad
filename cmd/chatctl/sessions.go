package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mentorcrm/chat/internal/api"
)

var nowFunc = time.Now

func runListSessions(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	sessions, err := rt.api.ListSessions(cmd.Context(), rt.cfg.Mode, nil)
	if err != nil {
		return errors.New(api.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "Nenhuma sessão encontrada.")
		return nil
	}
	now := nowFunc()
	for _, s := range sessions {
		fmt.Fprintln(out, rt.renderer.Session(s, now))
	}
	return nil
}

func runShowSession(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	messages, err := rt.api.LoadMessages(cmd.Context(), rt.cfg.Mode, args[0])
	if err != nil {
		return errors.New(api.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	for _, m := range messages {
		fmt.Fprintln(out, rt.renderer.Message(m))
	}
	return nil
}

func runDeleteSession(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.api.DeleteSession(cmd.Context(), rt.cfg.Mode, args[0]); err != nil {
		return errors.New(api.UserMessage(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sessão %s apagada.\n", args[0])
	return nil
}

// runListResource prints the items of a platform list. When the server is
// unreachable the cached copy, if still fresh, is printed with a warning.
func runListResource(cmd *cobra.Command, args []string) error {
	resource := api.Resource(args[0])
	known := false
	for _, r := range api.Resources() {
		known = known || r == resource
	}
	if !known {
		return fmt.Errorf("unknown resource %q", args[0])
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	var cached []json.RawMessage
	haveCached := false
	items, err := rt.api.List(cmd.Context(), resource, func(v []json.RawMessage) {
		if !haveCached {
			cached, haveCached = v, true
		}
	})
	out := cmd.OutOrStdout()
	if err != nil {
		if !haveCached {
			return errors.New(api.UserMessage(err))
		}
		fmt.Fprintln(out, rt.renderer.Banner(api.UserMessage(err)+" Exibindo dados em cache."))
		items = cached
	}

	for _, item := range items {
		fmt.Fprintln(out, string(item))
	}
	return nil
}
