// Command tokengen mints a bearer token for the HTTP API. Clients have no
// account lifecycle here; tokens are issued out-of-band with the server's
// secret key and handed to them.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/chunksync/chunksync/internal/server/auth"
)

func main() {

	subject := flag.String("u", "client", "token subject")
	secret := flag.String("s", "", "HMAC secret key (must match the server's)")
	ttl := flag.Duration("t", 24*time.Hour, "token validity")
	flag.Parse()

	if *secret == "" {
		log.Fatal("secret key is required")
	}

	token, err := auth.GenerateToken(*subject, []byte(*secret), *ttl)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(token)
}
