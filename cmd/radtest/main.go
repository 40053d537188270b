// radtest is a command-line RADIUS client for exercising a server: it
// sends a single Access-Request and prints the outcome.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/raddaemon/raddaemon/internal/client"
	"github.com/raddaemon/raddaemon/internal/logging"
	"github.com/raddaemon/raddaemon/pkg/radius"
)

func main() {
	servers := flag.String("servers", "127.0.0.1:1812", "comma-separated RADIUS server host:port list")
	secret := flag.String("secret", "", "shared secret")
	username := flag.String("user", "", "qualified username (e.g. jeff@realm)")
	password := flag.String("password", "", "password")
	realmFormat := flag.String("realm-format", "email", "email or slash")
	maxTransmissions := flag.Int("max-transmissions", 4, "total send attempts per request")
	flag.Parse()

	if *secret == "" || *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: radtest -servers host:port[,host:port...] -secret SECRET -user NAME -password PW")
		os.Exit(2)
	}

	logger := logging.Setup("warn", os.Stderr)

	pool, err := client.Open(client.Options{
		Servers:          strings.Split(*servers, ","),
		Secret:           *secret,
		MaxTransmissions: *maxTransmissions,
		RealmFormat:      radius.RealmFormat(*realmFormat),
		Logger:           logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	result := pool.Authenticate(*username, *password)
	fmt.Println(result.Outcome)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", result.Err)
		os.Exit(1)
	}
	if result.Outcome != client.OutcomeAccept {
		os.Exit(1)
	}
}
