// Copyright 2026 reelrank Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	_ "net/http/pprof"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/base/log"
	"github.com/reelrank/reelrank/config"
	"github.com/reelrank/reelrank/dataset"
	"github.com/reelrank/reelrank/model"
	"github.com/reelrank/reelrank/server"
	"github.com/reelrank/reelrank/storage"
)

var reelrankCommand = &cobra.Command{
	Use:   "reelrank",
	Short: "A movie recommender service.",
	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.PersistentFlags().GetBool("version")
		if showVersion {
			fmt.Println("reelrank version", version)
			return
		}
		debugMode, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debugMode)
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		skipEval, _ := cmd.PersistentFlags().GetBool("skip-eval")
		retrain, _ := cmd.PersistentFlags().GetBool("retrain")
		if err = serve(conf, skipEval, retrain); err != nil {
			log.Logger().Fatal("failed to serve", zap.Error(err))
		}
	},
}

const version = "0.1.0"

func init() {
	reelrankCommand.PersistentFlags().BoolP("version", "v", false, "reelrank version")
	reelrankCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	reelrankCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	reelrankCommand.PersistentFlags().Bool("skip-eval", false, "skip offline evaluation at startup")
	reelrankCommand.PersistentFlags().Bool("retrain", false, "retrain models even when snapshots exist")
	log.AddFlags(reelrankCommand.PersistentFlags())
}

func serve(conf *config.Config, skipEval, retrain bool) error {
	data, err := dataset.LoadDataset(conf.Data.DatasetDir)
	if err != nil {
		return errors.Trace(err)
	}
	split, err := splitInteractions(conf, data.Interactions)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("split dataset",
		zap.String("policy", conf.Data.SplitPolicy),
		zap.Int("train_set_size", len(split.Train)),
		zap.Int("test_set_size", len(split.Test)))

	store, err := storage.NewSnapshotStore(conf.Data.SnapshotDir)
	if err != nil {
		return errors.Trace(err)
	}
	models := []model.SnapshotModel{
		model.NewPopularity(),
		model.NewMatrixFactorization(model.Params{model.RandomState: conf.Recommend.RandomState}),
		model.NewItemItemCF(nil),
		model.NewGraphBased(model.Params{model.RandomState: conf.Recommend.RandomState}),
	}
	fitConfig := model.NewFitConfig().SetJobs(conf.Recommend.Jobs)
	for _, m := range models {
		if !retrain && store.Exists(m.Name()) {
			if err = restoreModel(store, m); err == nil {
				continue
			}
			log.Logger().Warn("failed to restore snapshot, retraining",
				zap.String("model", m.Name()), zap.Error(err))
		}
		m.Fit(split.Train, fitConfig)
		if err = store.Save(m.Snapshot()); err != nil {
			return errors.Trace(err)
		}
	}

	// rating baselines are cheap to fit, so they are never snapshotted
	baselines := []model.Model{
		model.NewGlobalAverage(),
		model.NewUserAverage(),
	}
	for _, m := range baselines {
		m.Fit(split.Train, fitConfig)
	}

	if !skipEval {
		for _, m := range models {
			model.EvaluateModel(m, split.Train, split.Test, data,
				conf.Recommend.EvalTopK, conf.Recommend.Jobs)
		}
		for _, m := range baselines {
			model.EvaluateModel(m, split.Train, split.Test, data,
				conf.Recommend.EvalTopK, conf.Recommend.Jobs)
		}
	}

	registry := server.NewRegistry(conf.Server.RequestTimeout)
	for _, m := range models {
		registry.Register(m)
	}
	for _, m := range baselines {
		registry.Register(m)
	}
	registry.AttachDataset(data, split.Train)
	s := server.NewRestServer(registry,
		conf.Server.HttpHost, conf.Server.HttpPort, conf.Server.CacheTTL)
	s.StartHttpServer()
	return nil
}

func splitInteractions(conf *config.Config, interactions []dataset.Interaction) (dataset.TrainTestSplit, error) {
	switch conf.Data.SplitPolicy {
	case "temporal":
		return dataset.TemporalSplit(interactions, conf.Data.TestRatio), nil
	case "random":
		return dataset.RandomSplit(interactions, conf.Data.TestRatio, conf.Data.SplitSeed), nil
	case "leave-one-out":
		return dataset.LeaveOneOut(interactions), nil
	default:
		return dataset.TrainTestSplit{}, errors.NotValidf("split policy %q", conf.Data.SplitPolicy)
	}
}

func restoreModel(store *storage.SnapshotStore, m model.SnapshotModel) error {
	snapshot, err := store.Load(m.Name())
	if err != nil {
		return errors.Trace(err)
	}
	if err = m.Restore(snapshot); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("restored model from snapshot", zap.String("model", m.Name()))
	return nil
}

func main() {
	if err := reelrankCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
