package main

import (
	"log"
	"sparql-client/api"
	"sparql-client/base"
)

func main() {
	go func() {
		if err := startProbe(); err != nil {
			log.Fatal(err)
		}
	}()
	if err := api.Router.Run(base.ListenAddress); err != nil {
		log.Fatal(err)
	}
}
