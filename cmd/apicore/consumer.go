package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/apicore"
	"github.com/sagarc03/apicore/config"
	"github.com/sagarc03/apicore/keybackend"
)

var consumerHashCmd = &cobra.Command{
	Use:   "consumer:hash [secret]",
	Short: "Hash a client secret with argon2id",
	Long: `Print the argon2id hash of a client secret. The hash can be stored as
client_secret in the consumers file or inline configuration.

When no secret is given it is read from a masked prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var secret string
		if len(args) == 1 {
			secret = args[0]
		} else {
			var err error
			if secret, err = promptSecret(); err != nil {
				return handlePromptError(err)
			}
		}

		hash, err := apicore.HashSecret(secret)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var consumerAddCmd = &cobra.Command{
	Use:   "consumer:add",
	Short: "Add an API consumer to the consumers file",
	Long: `Add or update an API consumer interactively.

You will be prompted for:
  - Client ID
  - Client secret

The secret is stored as an argon2id hash unless --plain is set. The file
defaults to auth.consumers.file from the configuration.`,
	Args: cobra.NoArgs,
	RunE: runConsumerAdd,
}

var (
	consumerFile  string
	consumerPlain bool
)

func init() {
	consumerAddCmd.Flags().StringVarP(&consumerFile, "file", "f", "", "consumers JSON file (default: auth.consumers.file)")
	consumerAddCmd.Flags().BoolVar(&consumerPlain, "plain", false, "store the secret without hashing")

	rootCmd.AddCommand(consumerHashCmd)
	rootCmd.AddCommand(consumerAddCmd)
}

func runConsumerAdd(cmd *cobra.Command, _ []string) error {
	path := consumerFile
	if path == "" {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		path = cfg.Auth.Consumers.File
	}
	if path == "" {
		return errors.New("no consumers file: set auth.consumers.file or pass --file")
	}

	idPrompt := promptui.Prompt{
		Label: "Client ID",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("client id is required")
			}
			return nil
		},
	}
	clientID, err := idPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	secret, err := promptSecret()
	if err != nil {
		return handlePromptError(err)
	}

	if !consumerPlain {
		if secret, err = apicore.HashSecret(secret); err != nil {
			return err
		}
	}

	if err := keybackend.SaveConsumer(path, keybackend.Consumer{ClientID: clientID, ClientSecret: secret}); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Consumer %q saved to %s\n", clientID, path)
	return nil
}

func promptSecret() (string, error) {
	prompt := promptui.Prompt{
		Label: "Client Secret",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("client secret is required")
			}
			return nil
		},
	}
	return prompt.Run()
}

func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
