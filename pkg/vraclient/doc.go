// Package vraclient is the entry point for building a vRealize Automation
// self-service portal client.
//
// It normalizes a vra.Config, selects the schema cache backend and wires the
// transport, session handling and endpoint registry of the portal client.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/vra/pkg/vra"
//	  "github.com/fivetwenty-io/vra/pkg/vraclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Credentials: a session token is requested on the first call.
//	  cli, err := vraclient.New(ctx, &vra.Config{
//	    Endpoint: "vra.example.com",
//	    Tenant:   "vsphere.local",
//	    Username: "jane@corp.local",
//	    Password: "secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  machines := cli.Machines()
//	  if err := machines.Refresh(ctx); err != nil { log.Fatal(err) }
//
//	  for _, machine := range machines.Rows() {
//	    log.Println(machine.Name(), machine.DailyCost())
//	  }
//	}
//
// # TLS and development mode
//
// Config.SkipTLSVerify is honored only when VRA_DEV_MODE is set, so a stray
// configuration value cannot disable certificate checks in production.
package vraclient
