package core

import "sync"

const avgCount uint8 = 30

type MetricsState struct {
	frameAVGCounter    uint8
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

// MetricsUpdate accumulates one frame's elapsed time (seconds) into the
// rolling frame-ms average and the FPS counter.
func MetricsUpdate(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	metricsState.msTimes[metricsState.frameAVGCounter] = frameMS
	if metricsState.frameAVGCounter == avgCount-1 {
		sum := 0.0
		for i := uint8(0); i < avgCount; i++ {
			sum += metricsState.msTimes[i]
		}
		metricsState.msAvg = sum / float64(avgCount)
	}
	metricsState.frameAVGCounter++
	metricsState.frameAVGCounter %= avgCount

	metricsState.accumulatedFrameMS += frameMS
	metricsState.frames++
	if metricsState.accumulatedFrameMS >= 1000.0 {
		metricsState.fps = float64(metricsState.frames) * 1000.0 / metricsState.accumulatedFrameMS
		metricsState.frames = 0
		metricsState.accumulatedFrameMS = 0
	}
}

// MetricsFrame returns the current FPS and the rolling frame-ms average.
func MetricsFrame() (fps, frameTime float64) {
	return metricsState.fps, metricsState.msAvg
}
