package handlers

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"
	"DEEPFAKE_DETECTOR/go-backend/internal/services"
	pb "DEEPFAKE_DETECTOR/go-backend/pkg/pb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func startDetectionServer(t *testing.T, clf services.Classifier, root string) pb.DetectionClient {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	pb.RegisterDetectionServer(srv, NewGRPCHandler(newAnalyzer(clf), staticHealth(true), nil, root, 0, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return pb.NewDetectionClient(conn)
}

func videoFile(t *testing.T, root string, content []byte) string {
	t.Helper()
	path := filepath.Join(root, "clip.mp4")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestGRPCHandler_DetectVideo(t *testing.T) {
	root := t.TempDir()
	client := startDetectionServer(t, pixelClassifier, root)

	out, err := client.DetectVideo(context.Background(), wrapperspb.String(videoFile(t, root, []byte{0xff, 0xff, 0x00})))
	require.NoError(t, err)

	v := VerdictFromStruct(out)
	assert.Equal(t, 3, v.TotalFrames)
	assert.Equal(t, 2, v.FakeFrames)
	assert.InDelta(t, 66.666, v.FakePercentage, 1e-2)
	assert.Equal(t, models.StatusFake, v.VideoStatus)
}

func TestGRPCHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		clf  services.Classifier
		path func(t *testing.T, root string) string
		want codes.Code
	}{
		{"empty path", pixelClassifier, func(*testing.T, string) string { return "  " }, codes.InvalidArgument},
		{"missing file", pixelClassifier, func(_ *testing.T, root string) string { return filepath.Join(root, "gone.mp4") }, codes.NotFound},
		{"corrupt file", pixelClassifier, func(t *testing.T, root string) string { return videoFile(t, root, []byte("bad")) }, codes.NotFound},
		{"no frames", pixelClassifier, func(t *testing.T, root string) string { return videoFile(t, root, nil) }, codes.FailedPrecondition},
		{"classifier down", failingClassifier, func(t *testing.T, root string) string { return videoFile(t, root, []byte{1}) }, codes.Unavailable},
		{"outside root", pixelClassifier, func(t *testing.T, _ string) string { return videoFile(t, t.TempDir(), []byte{1}) }, codes.InvalidArgument},
		{"escapes root", pixelClassifier, func(*testing.T, string) string { return "../../../etc/passwd" }, codes.InvalidArgument},
		{"device file", pixelClassifier, func(*testing.T, string) string { return "/dev/zero" }, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			client := startDetectionServer(t, tt.clf, root)
			_, err := client.DetectVideo(context.Background(), wrapperspb.String(tt.path(t, root)))
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestGRPCHandler_RelativePathUnderRoot(t *testing.T) {
	root := t.TempDir()
	client := startDetectionServer(t, pixelClassifier, root)
	videoFile(t, root, []byte{0xff, 0x00})

	out, err := client.DetectVideo(context.Background(), wrapperspb.String("clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, 2, VerdictFromStruct(out).TotalFrames)
}

func TestGRPCHandler_DeviceInsideRootRejected(t *testing.T) {
	if _, err := os.Stat("/dev/zero"); err != nil {
		t.Skip("no /dev/zero")
	}
	root := t.TempDir()
	require.NoError(t, os.Symlink("/dev/zero", filepath.Join(root, "zero.mp4")))
	client := startDetectionServer(t, pixelClassifier, root)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.DetectVideo(ctx, wrapperspb.String("zero.mp4"))
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestResolveVideoPath(t *testing.T) {
	root := t.TempDir()
	inside := videoFile(t, root, []byte{1})
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	got, err := resolveVideoPath(root, "sub/../clip.mp4")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(inside)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = resolveVideoPath(root, filepath.Join(root, "..", "clip.mp4"))
	assert.ErrorIs(t, err, errOutsideRoot)

	_, err = resolveVideoPath(root, "sub")
	assert.ErrorIs(t, err, errNotRegular)

	outside := videoFile(t, t.TempDir(), []byte{1})
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.mp4")))
	_, err = resolveVideoPath(root, "link.mp4")
	assert.ErrorIs(t, err, errOutsideRoot)

	_, err = resolveVideoPath(root, "gone.mp4")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.False(t, within("/srv/uploads", "/srv/uploads-old/clip.mp4"))
	assert.True(t, within("/srv/uploads", "/srv/uploads/..clip.mp4"))
}

func TestGRPCHandler_Health(t *testing.T) {
	client := startDetectionServer(t, pixelClassifier, t.TempDir())

	out, err := client.Health(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "healthy", out.GetFields()["status"].GetStringValue())
	assert.True(t, out.GetFields()["classifier"].GetBoolValue())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, codes.InvalidArgument, status.Code(StatusFor(fmt.Errorf("%w: path", services.ErrInvalidInput))))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(StatusFor(context.DeadlineExceeded)))
	assert.Equal(t, codes.Canceled, status.Code(StatusFor(context.Canceled)))
	assert.Equal(t, codes.Internal, status.Code(StatusFor(fmt.Errorf("boom"))))
	late := fmt.Errorf("%w: frame 3: %w", services.ErrClassifier, context.DeadlineExceeded)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(StatusFor(late)))
}

func TestVerdictStructRoundTrip(t *testing.T) {
	v := models.VideoVerdict{TotalFrames: 10, FakeFrames: 4, FakePercentage: 40, VideoStatus: models.StatusReal}
	s, err := VerdictStruct(v)
	require.NoError(t, err)
	assert.Equal(t, v, VerdictFromStruct(s))
}
