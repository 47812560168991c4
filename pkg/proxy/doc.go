// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy turns route descriptors into HTTP handlers that replay each
// inbound call against the remote service. It substitutes path parameters,
// relays the query string, an allow-list of headers and the body, and
// normalizes whatever the remote answers into a JSON response.
package proxy
