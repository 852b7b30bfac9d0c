package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/givecal/internal/model"
	"github.com/alfredjeanlab/givecal/internal/rpc"
)

func dialGRPC(t *testing.T, cs *CalendarServer, token string) *rpc.PledgeServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(cs, token)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewPledgeServiceClient(conn)
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v, got nil", code)
	}
	if st, _ := status.FromError(err); st.Code() != code {
		t.Fatalf("expected code %v, got %v: %v", code, st.Code(), err)
	}
}

func putReq(t *testing.T, id string, rec model.PledgeRecord) *structpb.Struct {
	t.Helper()
	req, err := rpc.PutRequest(id, &rec)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return req
}

func dayPledge(day int, name string) model.PledgeRecord {
	rec := model.PledgeRecord{ID: model.DayID(day), Amount: decimal.NewFromInt(int64(day)), Day: &day, OwnerHandle: "river-fund"}
	if name != "" {
		rec.Name = &name
	}
	return rec
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestGRPCPut_Synced(t *testing.T) {
	ms := newMockStore()
	cs, _ := newSyncedTestServer(t, ms)
	client := dialGRPC(t, cs, "secret")

	_, err := client.Put(context.Background(), putReq(t, "day-2", dayPledge(2, "Sam")))
	requireCode(t, err, codes.Unauthenticated)

	resp, err := client.Put(withToken("secret"), putReq(t, "day-2", dayPledge(2, "Sam")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := rpc.PledgeField(resp)
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.ID != "day-2" || rec.PledgerName() != "Sam" || rec.CreatedAt.IsZero() {
		t.Fatalf("unexpected stored record %+v", rec)
	}

	list, err := client.List(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs, err := rpc.PledgesField(list)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected 1 pledge, got %d (err %v)", len(recs), err)
	}
}

func TestGRPCPut_Errors(t *testing.T) {
	cs, _ := newSyncedTestServer(t, newMockStore())
	client := dialGRPC(t, cs, "")
	ctx := context.Background()

	_, err := client.Put(ctx, &structpb.Struct{})
	requireCode(t, err, codes.InvalidArgument)

	bad := dayPledge(1, "")
	bad.Amount = decimal.Zero
	_, err = client.Put(ctx, putReq(t, "day-1", bad))
	requireCode(t, err, codes.InvalidArgument)

	_, err = client.Put(ctx, putReq(t, "day-9", dayPledge(9, "")))
	requireCode(t, err, codes.InvalidArgument)

	local, _ := newTestServer(t)
	_, err = dialGRPC(t, local, "").Put(ctx, putReq(t, "day-1", dayPledge(1, "")))
	requireCode(t, err, codes.Unavailable)
}

func TestGRPCWatch_SnapshotThenLive(t *testing.T) {
	cs, h := newTestServer(t)
	client := dialGRPC(t, cs, "")

	postForm(t, h, "/cells/day-1/pledge", formValues("1", ""), desktopUA)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}

	msg, err := stream.Recv()
	if err != nil {
		t.Fatalf("failed to receive snapshot: %v", err)
	}
	rec, _ := rpc.PledgeField(msg)
	if rec == nil || rec.ID != "day-1" {
		t.Fatalf("expected day-1 snapshot, got %+v", rec)
	}

	// The snapshot was sent after the subscription was registered, so a
	// pledge made now must arrive live.
	postForm(t, h, "/cells/any-1/pledge", formValues("37.5", "Kim"), desktopUA)

	msg, err = stream.Recv()
	if err != nil {
		t.Fatalf("failed to receive live pledge: %v", err)
	}
	rec, _ = rpc.PledgeField(msg)
	if rec == nil || rec.ID != "any-1" || !rec.IsAny || rec.PledgerName() != "Kim" {
		t.Fatalf("unexpected live pledge %+v", rec)
	}
}

func TestGRPCWatch_TracksViewer(t *testing.T) {
	cs, h := newTestServer(t)
	client := dialGRPC(t, cs, "")
	postForm(t, h, "/cells/day-1/pledge", formValues("1", ""), desktopUA)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-givecal-client", "anon-tui")
	stream, err := client.Watch(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("failed to watch: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("failed to receive snapshot: %v", err)
	}

	roster := cs.viewers.Roster()
	if len(roster) != 1 || roster[0].Viewer != "anon-tui" || roster[0].Transport != "grpc" || roster[0].Feeds != 1 {
		t.Fatalf("unexpected roster %+v", roster)
	}
}
