package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dukes-snr/EazyUi-sub001/kit"
)

func TestMCPDecode_TagsTransport(t *testing.T) {
	res, err := decodeEmpty(&mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if res.EnrichCtx == nil {
		t.Fatal("decode result carries no context enrichment")
	}
	ctx := res.EnrichCtx(context.Background())
	if got := kit.GetTransport(ctx); got != "mcp" {
		t.Fatalf("transport = %q", got)
	}
}

func TestToolErrors_PrefixesToolName(t *testing.T) {
	cause := errors.New("no active edit session")
	ep := toolErrors("eazyui_undo")(func(context.Context, any) (any, error) {
		return nil, cause
	})

	_, err := ep(context.Background(), nil)
	if !errors.Is(err, cause) {
		t.Fatalf("wrapping lost the cause: %v", err)
	}
	if err.Error() != "eazyui_undo: no active edit session" {
		t.Fatalf("error = %q", err)
	}
}
