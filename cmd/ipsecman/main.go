package main

import (
	"log"
	"os"

	"github.com/luscis/ipsecman/cmd/api"
	"github.com/luscis/ipsecman/cmd/api/v1"
)

func main() {
	log.SetFlags(0)
	api.Conf = api.GetEnv("IPSECMAN_CONF", api.Conf)
	api.Socket = api.GetEnv("IPSECMAN_SOCKET", api.Socket)
	app := v1.NewApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
