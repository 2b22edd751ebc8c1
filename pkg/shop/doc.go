// Package shop provides types, interfaces, and helpers for working with the
// store admin REST API.
//
// # Overview
//
// The shop package defines the domain types (Product, Category, Session,
// Captcha), the request and payload types of the authenticated pipeline, and
// the interfaces for resource-oriented clients (ProductsClient,
// CategoriesClient). A concrete implementation is provided by the shopclient
// package, which wires configuration, transport, token storage and the
// session state machine.
//
// Getting a client
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
//	  cli, err := shopclient.New(ctx, &shop.Config{BaseURL: "http://127.0.0.1:8000/api"})
//	  if err != nil { log.Fatal(err) }
//
//	  captcha, err := cli.FetchCaptcha(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = captcha // show captcha.Image to the user
//
//	  _, err = cli.Login(ctx, shop.Credentials{Email: "a@b.com", Password: "secret12", CaptchaCode: "Q7X2"})
//	  if err != nil { log.Fatal(err) }
//
//	  product, err := cli.Products().Get(ctx, 9)
//	  if err != nil { log.Fatal(err) }
//	  _ = product
//	}
//
// # Sessions and refresh
//
// Every authenticated request carries "Authorization: Bearer <token>" when a
// token exists and no Authorization header otherwise. A 401 answer triggers a
// single refresh and a single replay of the request; a second 401 is final.
// Concurrent callers that hit 401 while a refresh is in flight share that
// refresh.
//
// # Errors
//
// All failures are *Error values classified by Kind (network,
// invalid_credentials, captcha_mismatch, captcha_unavailable, unauthorized,
// session_expired, not_found, validation, server). Use errors.Is with the
// package sentinels or helpers such as IsNotFound, IsUnauthorized and
// IsValidation. Validation errors carry a field to message map in Fields.
//
// # Interceptors
//
// An InterceptorChain passed in Config runs on every attempt, including the
// replay after a refresh. Logging, header, request id, rate limiting and
// metrics interceptors are provided.
package shop
