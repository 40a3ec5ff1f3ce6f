/*
Package types defines the request and response structures shared by the
HTTP executor and its callers.

# Request Types

HttpRequest:
  - Method, URL and headers
  - Optional url-encoded form body (login)
  - Cookies attached per request (session credential)
  - DiscardBody for payloads that are only drained (media segments)

# Response Types

RequestResult:
  - Status code and text
  - Body (empty when drained)
  - Response cookies
  - Duration and sizes

TLSConfig:
  - Skip verification for test environments
  - Client certificate (mTLS)
  - Custom CA bundle
*/
package types
