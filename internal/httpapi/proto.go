package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// maxRequestBody caps request bodies. Scans carry everything in the query
// string, so anything larger is not from a device.
const maxRequestBody = "4K"

const mimeProtobuf = "application/x-protobuf"

// wantsProtobuf reports whether the device asked for a protobuf response.
// Constrained firmware sends "application/x-protobuf".
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return accept == mimeProtobuf ||
		accept == "application/protobuf" ||
		accept == "application/octet-stream"
}

// scanResponseStruct mirrors the JSON response shape as a
// google.protobuf.Struct so devices decode the same field names either way.
func scanResponseStruct(resp types.ScanResponse) (*structpb.Struct, error) {
	fields := map[string]any{
		"success":   resp.Success,
		"scan_data": resp.ScanData.ToAny(),
	}
	if resp.GrantType != "" {
		fields["grant_type"] = string(resp.GrantType)
	}
	if resp.ResponseCode != "" {
		fields["response_code"] = string(resp.ResponseCode)
	}
	return structpb.NewStruct(fields)
}

// writeProto marshals resp and writes it with the given HTTP status.
func writeProto(c echo.Context, status int, resp types.ScanResponse) error {
	msg, err := scanResponseStruct(resp)
	if err != nil {
		return fmt.Errorf("build proto response: %w", err)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("proto marshal: %w", err)
	}
	return c.Blob(status, mimeProtobuf, data)
}
