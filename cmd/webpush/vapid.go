package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-webpush/pkg/adapters/webpush"
	"github.com/goliatone/go-webpush/pkg/config"
)

// VAPID prints a new key pair.
type VAPID struct{}

func (x *VAPID) Execute(args []string) error {
	publicKey, privateKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s=%s\n%s=%s\n", config.EnvVAPIDPublicKey, publicKey, config.EnvVAPIDPrivateKey, privateKey)
	return nil
}
