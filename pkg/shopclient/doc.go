// Package shopclient provides the primary entry point for constructing a
// shop admin API client that implements the shop.Client interface.
//
// It layers base URL normalization, token storage, HTTP transport, and the
// session state machine on top of the types and interfaces defined in the
// shop package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/shopadmin/pkg/shop"
//	  "github.com/fivetwenty-io/shopadmin/pkg/shopclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := shopclient.NewWithBaseURL(ctx, "http://127.0.0.1:8000/api")
//	  if err != nil { log.Fatal(err) }
//
//	  captcha, err := cli.FetchCaptcha(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = captcha // show captcha.Image to the user
//
//	  _, err = cli.Login(ctx, shop.Credentials{
//	    Email:       "admin@example.com",
//	    Password:    "secret",
//	    CaptchaCode: "Q7X2",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  products, err := cli.Products().List(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = products
//	}
//
// # Token storage
//
// By default the session token is held in memory. NewTokenStore builds a
// store that survives restarts:
//
//	store, err := shopclient.NewTokenStore(&shopclient.StoreConfig{
//	  Type: shopclient.StoreTypeFile,
//	  File: "/home/me/.shopadmin/token.yml",
//	})
//	cli, err := shopclient.NewWithTokenStore(ctx, baseURL, store)
//
// The keyring store uses the operating system keychain. The NATS store keeps
// the token in a JetStream key-value bucket so several processes share one
// session; it holds a connection and must be closed.
//
// # Expired sessions
//
// Calls that receive 401 refresh the token once and replay the call.
// Concurrent callers share a single refresh. When the refresh fails the
// session is cleared and the call fails with an error matching both
// shop.ErrUnauthorized and shop.ErrSessionExpired.
package shopclient
