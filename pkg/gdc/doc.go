// Package gdc is the core of the client library for the analytics platform
// REST API. It holds the shared HTTP client, authentication, error types,
// paging and the polling of asynchronous tasks. Resource specific services
// live in sibling packages (connector, dataset, execution, md, process,
// project, report, warehouse) and are built on a *Client.
//
// # Configuration Example
//
//	client, err := gdc.New(&gdc.Config{
//	  Endpoint: "https://secure.gooddata.com",
//	  Login:    "user@example.com",
//	  Password: os.Getenv("GDC_PASSWORD"),
//	  Logger:   hclog.Default(),
//	})
//
// # Authentication
//
// Two methods are supported:
//   - Login and password: the client logs in to obtain a super secured token
//     (SST) and exchanges it for temporary tokens (TT) that are renewed on
//     expiry or on a 401 response.
//   - API token: sent as a bearer token with every request.
//
// # Asynchronous Tasks
//
// Long running operations follow one convention: the create request is
// answered with a poll link, the link is polled until a terminal status, and
// the final resource is fetched. Services return a *FutureResult for those
// operations:
//
//	result, err := warehouses.CreateWarehouse(ctx, w)
//	if err != nil {
//	  return err
//	}
//	created, err := result.GetWithTimeout(10 * time.Minute)
//
// Polling uses a fixed interval (Config.PollInterval). A timeout only stops
// waiting, the remote operation keeps running.
//
// # Error Handling
//
//   - *Error for transport failures and non-success statuses, always carrying
//     the request URI and the platform error message.
//   - Not found errors specific to each service, built from 404 responses.
//   - *TimeoutError when waiting for a task gives up.
//
// # Paging
//
// List resources return a Page. Collect and GetAll follow the next links
// until the last page.
package gdc
