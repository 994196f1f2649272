// issue-service-token prints a bearer token for service-to-service calls
// (e.g. the operations console hitting /internal/businesses).
//
// Usage:
//   API_SECRET=... TOKEN_HOUR_LIFESPAN=24 go run ./cmd/issue-service-token --id 1 --role A
package main

import (
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/stocktrack_backend/utils"
)

func main() {
	id := flag.Int("id", 0, "Required: caller id embedded in the token")
	role := flag.String("role", "A", "Role claim (A=admin)")
	flag.Parse()

	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "--id is required")
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(*id, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
