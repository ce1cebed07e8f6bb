package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"veristat/internal/config"
	"veristat/internal/dataset"
	"veristat/internal/generator"
	"veristat/internal/model"
	"veristat/internal/pipeline"
	"veristat/internal/qc"
	"veristat/internal/recalc"
	"veristat/internal/store"
)

var (
	configPath = flag.String("config", "", "配置文件路径 (默认读取可执行文件同目录的 config.toml)")
	dataPath   = flag.String("data", "", "输入数据文件 (.csv / .xlsx)")
	dataSheet  = flag.String("sheet", "", "输入为 xlsx 时读取的 sheet (默认第一个)")
	planPath   = flag.String("plan", "", "分析计划文件 (.yaml / .json)")
	outPath    = flag.String("out", "", "产物输出路径 (.xlsx，默认写入数据目录 artifacts/)")
	engineKind = flag.String("engine", "", "重算引擎: soffice / local (覆盖配置文件)")
	noStore    = flag.Bool("no-store", false, "不写审计库")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Veristat - 全公式统计产物生成与验证")
	fmt.Println("==========================================")

	if *dataPath == "" || *planPath == "" {
		fmt.Fprintln(os.Stderr, "用法: veristat -data <数据文件> -plan <计划文件> [-out 产物.xlsx]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// 加载配置
	var cfg *config.AppConfig
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
	}
	if *engineKind != "" {
		cfg.Engine.Kind = *engineKind
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		log.Fatalf("创建数据目录失败: %v", err)
	}
	fmt.Printf("数据目录: %s\n", dataDir)

	// 数据画像
	profile, err := dataset.Load(*dataPath, *dataSheet)
	if err != nil {
		log.Fatalf("加载数据失败: %v", err)
	}
	fmt.Printf("数据集: %d 行 × %d 列 (数值 %d, 分类 %d)\n",
		profile.Rows, len(profile.Columns),
		len(profile.NumericColumns()), len(profile.CategoricalColumns()))

	// 分析计划
	plan, err := model.LoadPlan(*planPath)
	if err != nil {
		log.Fatalf("加载计划失败: %v", err)
	}
	fmt.Printf("计划: 会话 %s，共 %d 个任务\n", plan.SessionID, len(plan.Tasks))

	artifact := *outPath
	if artifact == "" {
		artifact = filepath.Join(dataDir, "artifacts", plan.SessionID+".xlsx")
	}

	// 审计库
	var st *store.Store
	if !*noStore {
		st, err = store.New(config.DBPath(cfg, dataDir))
		if err != nil {
			log.Fatalf("打开审计库失败: %v", err)
		}
		defer st.Close()
	}

	// 生成器与重算引擎
	gen := generator.New(profile, generator.Options{
		HelperBaseColumn:   cfg.Generate.HelperBaseColumn,
		MaxFrequencyLevels: cfg.Generate.MaxFrequencyLevels,
		MaxCrosstabLevels:  cfg.Generate.MaxCrosstabLevels,
		DefaultMaxColumns:  cfg.Generate.DefaultMaxColumns,
		SkipCleanedSheet:   cfg.Generate.SkipCleanedSheet,
	})
	engine := buildEngine(cfg)
	gate := qc.NewGate(cfg.Verify.MinFormulaPercentage)

	runner := pipeline.NewRunner(profile, gen, engine, gate, st)
	outcomes, err := runner.RunPlan(context.Background(), plan, artifact)
	if err != nil {
		log.Fatalf("执行失败: %v", err)
	}

	fmt.Printf("\n产物: %s\n", artifact)
	rejected := 0
	for _, o := range outcomes {
		if o.Verify != nil {
			fmt.Println("  " + o.Verify.Summary())
		}
		if o.Verdict != nil {
			fmt.Println("  " + o.Verdict.Summary())
			if !o.Verdict.Passed && !o.Verdict.NotVerifiable {
				rejected++
			}
		}
	}
	if rejected > 0 {
		log.Fatalf("%d 个 sheet 被质量门拒绝", rejected)
	}
	fmt.Println("全部任务通过质量门")
}

func buildEngine(cfg *config.AppConfig) recalc.Engine {
	var inner recalc.Engine
	switch cfg.Engine.Kind {
	case "local":
		inner = recalc.Local{}
	default:
		inner = recalc.NewSoffice(cfg.Engine.SofficeBinary,
			time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)
	}
	return &recalc.WithRetry{
		Inner: inner,
		Pause: time.Duration(cfg.Engine.RetryPauseMS) * time.Millisecond,
	}
}
