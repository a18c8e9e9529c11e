package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"DEEPFAKE_DETECTOR/go-backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	backendURL = flag.String("backend", "http://localhost:8080", "detector HTTP address")
	videoPath  = flag.String("video", "", "video to upload")
)

func testHealth() error {
	fmt.Println("\n[TEST] Testing /api/health...")
	resp, err := http.Get(*backendURL + "/api/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	var health models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to parse health: %w", err)
	}
	fmt.Printf("✓ Health: status=%s classifier=%v database=%v\n", health.Status, health.Classifier, health.Database)
	if !health.Classifier {
		fmt.Println("⚠ Classifier is not reachable, detection tests will fail")
	}
	return nil
}

// postVideo sends path as multipart field to endpoint and returns status and body.
func postVideo(endpoint, field, path string) (int, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return 0, nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, nil, err
	}
	mw.Close()

	resp, err := http.Post(endpoint, mw.FormDataContentType(), &buf)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}

// testUpload uploads the video while listening on the websocket for frame
// progress under the same client id.
func testUpload(path string) error {
	fmt.Println("\n[TEST] Testing /upload with websocket progress...")

	clientID := "test-" + uuid.NewString()
	u, err := url.Parse(*backendURL)
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = "clientId=" + clientID

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	frames := make(chan int, 1)
	go func() {
		n := 0
		for {
			var msg models.WebSocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				frames <- n
				return
			}
			switch msg.Type {
			case "FRAME_SCORED":
				n++
			case "VERDICT", "ERROR":
				frames <- n
				return
			}
		}
	}()

	start := time.Now()
	status, body, err := postVideo(*backendURL+"/upload?client_id="+clientID, "video", path)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upload failed: status %d, body: %s", status, string(body))
	}

	var v models.VideoVerdict
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("failed to parse verdict: %w", err)
	}

	select {
	case n := <-frames:
		fmt.Printf("✓ Received %d frame updates over websocket\n", n)
	case <-time.After(5 * time.Second):
		fmt.Println("⚠ No final websocket message")
	}

	fmt.Printf("✓ Upload classified in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  - Total Frames: %d\n", v.TotalFrames)
	fmt.Printf("  - Fake Frames: %d (%.2f%%)\n", v.FakeFrames, v.FakePercentage)
	fmt.Printf("  - Verdict: %s\n", v.VideoStatus)
	return nil
}

func testPredict(path string) error {
	fmt.Println("\n[TEST] Testing /predict...")

	status, body, err := postVideo(*backendURL+"/predict", "file", path)
	if err != nil {
		return fmt.Errorf("predict failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("predict failed: status %d, body: %s", status, string(body))
	}

	var p models.Prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("failed to parse prediction: %w", err)
	}
	fmt.Printf("✓ Prediction: %s (%d/%d fake frames)\n", p.Prediction, p.FakeFrames, p.TotalFrames)
	return nil
}

func testRejectsUnsupportedType() error {
	fmt.Println("\n[TEST] Testing /upload rejects unsupported files...")

	tmp, err := os.CreateTemp("", "not-a-video-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("hello")
	tmp.Close()

	status, body, err := postVideo(*backendURL+"/upload", "video", tmp.Name())
	if err != nil {
		return err
	}
	if status != http.StatusBadRequest {
		return fmt.Errorf("expected 400, got %d: %s", status, string(body))
	}
	fmt.Printf("✓ Rejected: %s\n", strings.TrimSpace(string(body)))
	return nil
}

func main() {
	flag.Parse()

	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("DEEPFAKE DETECTOR - Backend Testing Client")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println("\n[INFO] Make sure the Go backend is running on", *backendURL)

	if err := testHealth(); err != nil {
		log.Fatalf("❌ Health check failed: %v", err)
	}
	if err := testRejectsUnsupportedType(); err != nil {
		log.Fatalf("❌ Validation test failed: %v", err)
	}

	if *videoPath == "" {
		fmt.Println("\n[INFO] No -video given, skipping detection tests")
		return
	}

	tests := []struct {
		name string
		fn   func(string) error
	}{
		{"Upload", testUpload},
		{"Predict", testPredict},
	}
	for _, test := range tests {
		if err := test.fn(*videoPath); err != nil {
			log.Printf("❌ %s failed: %v", test.name, err)
			os.Exit(1)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ All tests completed successfully!")
	fmt.Println("=" + strings.Repeat("=", 60))
}
