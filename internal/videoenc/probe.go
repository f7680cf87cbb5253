package videoenc

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// logHardwareProbe records host CPU identity alongside the hardware/
// software backend decision, so encoder logs can be correlated with
// known-bad GPU/driver combinations without needing a repro machine.
func logHardwareProbe(cfg Config, chosen backend) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	info, err := cpu.InfoWithContext(ctx)
	if err != nil || len(info) == 0 {
		log.Debug("encoder backend selected", "backend", chosen.Name(), "hardware", chosen.IsHardware())
		return
	}
	log.Debug("encoder backend selected",
		"backend", chosen.Name(),
		"hardware", chosen.IsHardware(),
		"cpu_model", info[0].ModelName,
		"cpu_cores", info[0].Cores,
		"output", cfg.OutputPath,
	)
}
