package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cropaway/cropengine/internal/encoder"
	"github.com/cropaway/cropengine/internal/export"
	"github.com/cropaway/cropengine/internal/probe"
	"github.com/cropaway/cropengine/internal/store"
)

func main() {
	inputPtr := flag.String("input", "", "Path to the source video (overrides the document's video path)")
	outputPtr := flag.String("output", "output.mp4", "Path to the exported video")
	cropsPtr := flag.String("crops", "", "Path to the crop document (YAML)")
	codecPtr := flag.String("codec", "", "Target codec: h264, hevc, vp9, av1 (default: source codec)")
	hardwarePtr := flag.Bool("hardware", false, "Use the platform hardware encoder")
	alphaPtr := flag.Bool("alpha", false, "Export mask shapes with an alpha channel")
	preservePtr := flag.Bool("preserve-full-frame", false, "Keep the full frame for rectangle crops")
	backgroundPtr := flag.String("background", "", "Background color for non-alpha mask exports (default black)")
	qualityPtr := flag.Int("quality", 0, "Quality (0 - auto, x264/x265: CRF, VideoToolbox: bitrate = Q*100kbit/s, NVENC: CQ)")
	workersPtr := flag.Int("mask-workers", 0, "Mask rasterization threads (0 - all CPUs)")
	keepTempPtr := flag.Bool("keep-temp", false, "Keep temporary mask assets")
	verbosePtr := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbosePtr {
		log.SetLevel(logrus.DebugLevel)
	}

	if *cropsPtr == "" {
		log.Fatal("no crop document: pass -crops session.yaml")
	}

	cfg, err := export.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *workersPtr > 0 {
		cfg.MaskWorkers = *workersPtr
	}
	if *keepTempPtr {
		cfg.KeepTempAssets = true
	}

	doc, err := store.Read(*cropsPtr)
	if err != nil {
		log.Fatalf("crop document: %v", err)
	}

	inputPath := *inputPtr
	if inputPath == "" {
		inputPath = doc.Video.Path
	}
	if inputPath == "" {
		log.Fatal("no input video: pass -input or set video.path in the document")
	}

	prober := probe.FFprobe{}
	src, err := prober.Probe(context.Background(), inputPath)
	if err != nil {
		log.Fatalf("probe %s: %v", inputPath, err)
	}
	log.Infof("source: %s %dx%d @ %.3f fps, %.2fs, %s",
		inputPath, src.Width, src.Height, src.FrameRate, src.Duration, src.Codec)

	settings := doc.Settings
	settings.EnableAlpha = settings.EnableAlpha || *alphaPtr
	settings.PreserveFullFrame = settings.PreserveFullFrame || *preservePtr
	settings.UseHardware = settings.UseHardware || *hardwarePtr
	if *codecPtr != "" {
		settings.Codec = *codecPtr
	}
	if *backgroundPtr != "" {
		settings.BackgroundColor = *backgroundPtr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := export.NewManager(cfg, &encoder.FFmpeg{Binary: cfg.FFmpegBinary, Log: log}, log)
	mgr.Start(ctx)

	job, err := mgr.Submit(export.Request{
		Input:    inputPath,
		Output:   *outputPtr,
		Source:   src,
		Timeline: &doc.Timeline,
		Settings: settings,
		Quality:  *qualityPtr,
	})
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	mgr.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			fmt.Printf("\r[%s] %5.1f%%", job.State(), job.Progress()*100)
		}
	}()

	res := <-mgr.Results()
	if err := mgr.Wait(); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	fmt.Println()

	if res.Err != nil {
		log.Fatalf("export: %v", res.Err)
	}
	log.Infof("done: %s", res.Output)
}
