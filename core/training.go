package core

import (
	"log"
	"time"

	"github.com/real-lhj/DeepOD/dataset"
	"github.com/real-lhj/DeepOD/errors"
)

// EpochCallback receives the 1-based epoch number and the epoch's mean
// training loss. Returning a non-nil error stops training and is
// propagated to the caller; the search driver uses this to report rung
// metrics and to prune trials.
type EpochCallback func(epoch int, meanLoss float64) error

// trainModel runs one full training cycle for a single ensemble member:
// a fixed number of epochs over the loader with the fixed Adam policy.
func (d *Detector) trainModel(loader Loader, net Network, criterion Criterion, cb EpochCallback) error {
	opt := newAdam(net.Parameters(), d.opts.LR)

	for epoch := 0; epoch < d.opts.Epochs; epoch++ {
		start := time.Now()
		var total float64
		var cnt int

		loader.Reset()
		for {
			batch, ok := loader.Next()
			if !ok {
				break
			}
			loss, grads, err := d.ops.TrainingForward(batch, net, criterion)
			if err != nil {
				return errors.Wrapf(err, "training forward, epoch %d batch %d", epoch+1, cnt+1)
			}
			if grads != nil {
				opt.apply(net.Parameters(), grads)
			}
			total += loss
			cnt++

			// terminate the epoch at the assigned maximum steps
			if d.opts.EpochSteps != -1 && cnt >= d.opts.EpochSteps {
				break
			}
		}

		took := time.Since(start)
		if epoch == 0 {
			d.epochTime = took
		}
		mean := total
		if cnt > 0 {
			mean = total / float64(cnt)
		}

		if d.opts.Verbose >= 1 && (epoch == 0 || (epoch+1)%d.opts.PrtSteps == 0) {
			log.Printf("epoch %3d, training loss: %.6f, time: %.1fs", epoch+1, mean, took.Seconds())
		}

		if u, ok := d.ops.(EpochUpdater); ok {
			u.EpochUpdate()
		}
		if cb != nil {
			if err := cb(epoch+1, mean); err != nil {
				return err
			}
		}
	}
	return nil
}

// FitTrial trains a single ensemble member over already-framed data,
// invoking cb after every epoch. It is the trainable unit wrapped by the
// hyperparameter search driver; the regular Fit path does not use it.
func (d *Detector) FitTrial(train *dataset.Dataset, cb EpochCallback) error {
	d.nSamples = train.Len()
	d.nFeatures = train.Features()
	// a trial trains and evaluates a single member regardless of the
	// configured ensemble size
	d.nEnsemble = 1
	loader, net, criterion, err := d.ops.TrainingPrepare(train, d.rng)
	if err != nil {
		return errors.Wrapf(err, "preparing trial model")
	}
	d.net, d.criterion = net, criterion
	return d.trainModel(loader, net, criterion, cb)
}

// RestoreMember rebuilds a live ensemble member via TrainingPrepare and
// overwrites its parameters with a checkpointed snapshot.
func (d *Detector) RestoreMember(train *dataset.Dataset, params [][]float64) error {
	d.nSamples = train.Len()
	d.nFeatures = train.Features()
	d.nEnsemble = d.opts.NEnsemble
	if d.nEnsemble == 0 {
		d.nEnsemble = autoEnsembleSize(d.nSamples, d.nFeatures)
	}
	_, net, criterion, err := d.ops.TrainingPrepare(train, d.rng)
	if err != nil {
		return errors.Wrapf(err, "rebuilding model for checkpoint restore")
	}
	live := net.Parameters()
	if len(live) != len(params) {
		return errors.Errorf("checkpoint has %d parameter groups, model has %d", len(params), len(live))
	}
	for i := range live {
		if len(live[i]) != len(params[i]) {
			return errors.Errorf("checkpoint group %d has %d parameters, model has %d", i, len(params[i]), len(live[i]))
		}
		copy(live[i], params[i])
	}
	d.net, d.criterion = net, criterion
	return nil
}
