// Command admintoken mints an offline JWT authorizing POST /events.
// There is no login flow in this service; operators run this command
// whenever they need a fresh admin token.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/seatgrid/seatgrid/internal/utils"
)

func main() {
	secret := flag.String("secret", "", "HMAC secret matching ADMIN_JWT_SECRET (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	subject := flag.String("subject", "admin", "token subject claim")
	flag.Parse()

	if *secret == "" {
		log.Fatal("admintoken: -secret is required")
	}

	tok, err := utils.NewAdminToken(*secret, *subject, *ttl)
	if err != nil {
		log.Fatalf("admintoken: sign: %v", err)
	}
	fmt.Println(tok.Token)
}
