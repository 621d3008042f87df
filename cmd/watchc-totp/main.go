package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/njkleiner/watchc/internal/config"
	"github.com/njkleiner/watchc/internal/totp"
	"github.com/spf13/pflag"
)

func main() {
	var (
		cfg    config.File
		window bool
	)

	fs := pflag.NewFlagSet("watchc-totp", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Password, "password", "p", "", "TOTP secret")
	fs.StringVarP(&cfg.Passfile, "passfile", "f", "", "read TOTP secret from first line in `FILE`")
	fs.BoolVar(&window, "window", false, "print the codes of the previous, current and next time step")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}

		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	secret, isDefault := cfg.Secret(context.Background())

	if isDefault {
		fmt.Fprintln(os.Stderr, "warning: using the public default secret")
	}

	now := time.Now()

	if !window {
		fmt.Println(totp.At(secret, now))
		return
	}

	for _, code := range totp.Current(secret, now) {
		fmt.Println(code)
	}
}
