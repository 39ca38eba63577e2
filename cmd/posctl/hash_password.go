package main

import (
	"errors"
	"fmt"

	"akppos/internal/service"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const passwordFlag = "password"

var hashFlags = map[string]cobraflags.Flag{
	passwordFlag: &cobraflags.StringFlag{
		Name:  passwordFlag,
		Value: "",
		Usage: "Plain-text password to hash",
	},
}

func newHashPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash stored for a password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := hashPassword(hashFlags[passwordFlag].GetString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, hashFlags)
	return cmd
}

func hashPassword(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("--password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), service.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
