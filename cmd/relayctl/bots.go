package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"uk.co.dudmesh.viberrelay/internal/model"
	"uk.co.dudmesh.viberrelay/internal/store"
	"uk.co.dudmesh.viberrelay/internal/viber"
)

func botsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage registered bots",
	}
	cmd.AddCommand(botsAddCmd(), botsListCmd(), botsDisableCmd())
	return cmd
}

func botsAddCmd() *cobra.Command {
	var (
		id     string
		token  string
		name   string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a bot or replace its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if verify {
				ctx, cancel := context.WithTimeout(cmd.Context(), config.RemoteTimeout())
				defer cancel()
				account, err := viber.New(config).GetAccountInfo(ctx, token)
				if err != nil {
					return fmt.Errorf("verifying token: %w", err)
				}
				if name == "" {
					name = account.Name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified %s (%s, %d subscribers)\n", account.Name, account.URI, account.SubscribersCount)
			}

			botStore, err := store.NewBotStore(config)
			if err != nil {
				return err
			}
			defer botStore.Close()

			bot := &model.BotCredentials{
				ID:        model.BotID(id),
				Token:     token,
				Name:      name,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			}
			if err := botStore.PutBot(cmd.Context(), bot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bot %s saved (token %s)\n", id, model.Fingerprint(token))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "bot id used in API paths")
	cmd.Flags().StringVar(&token, "token", "", "platform auth token")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the token against the platform before saving")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("token")
	return cmd
}

func botsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active bots",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			botStore, err := store.NewBotStore(config)
			if err != nil {
				return err
			}
			defer botStore.Close()

			bots, err := botStore.ListBots(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTOKEN\tCREATED")
			for _, bot := range bots {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", bot.ID, bot.Name, model.Fingerprint(bot.Token), bot.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func botsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Stop loading a bot at startup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}
			botStore, err := store.NewBotStore(config)
			if err != nil {
				return err
			}
			defer botStore.Close()

			if err := botStore.Deactivate(cmd.Context(), model.BotID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bot %s disabled, restart the relay to apply\n", args[0])
			return nil
		},
	}
}
