package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "call-transcript-service/internal/api/grpc"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	audioURL := flag.String("url", "", "Stereo recording URL (user left, agent right)")
	callID := flag.String("call", "", "Call ID (generated by the server when empty)")
	language := flag.String("language", "", "Language code override")
	align := flag.String("align", "", "Force alignment on or off (true|false), server default when empty")
	timeout := flag.Duration("timeout", 5*time.Minute, "Request timeout")
	flag.Parse()

	if *audioURL == "" {
		log.Fatal("-url is required")
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	fields := map[string]any{"stereoAudioUrl": *audioURL}
	if *callID != "" {
		fields["callId"] = *callID
	}
	if *language != "" {
		fields["language"] = *language
	}
	switch *align {
	case "":
	case "true":
		fields["align"] = true
	case "false":
		fields["align"] = false
	default:
		log.Fatalf("invalid -align value %q", *align)
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("Transcribing %s via %s", *audioURL, *serverAddr)
	start := time.Now()

	resp, err := grpcapi.Transcribe(ctx, conn, req)
	if err != nil {
		log.Fatalf("transcribe failed: %v", err)
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		log.Fatalf("failed to render response: %v", err)
	}
	fmt.Println(string(out))
	log.Printf("Done in %s", time.Since(start).Round(time.Millisecond))
}
