package tracker

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/mat"
)

// PointState is the constant velocity state of a single landmark, position
// followed by velocity as [x, y, vx, vy]
type PointState struct {
	Mean       [4]float64
	Covariance *mat.Dense
}

// KalmanFilter smooths landmark positions with a constant velocity model.
// Positions are in normalized image coordinates
type KalmanFilter struct {
	stdPosition    float64
	stdVelocity    float64
	stdMeasurement float64
	motionMat      *mat.Dense
	updateMat      *mat.Dense
}

// NewKalmanFilter returns a filter with the given process noise weights for
// position and velocity and the measurement noise
func NewKalmanFilter(stdPosition, stdVelocity, stdMeasurement float64) *KalmanFilter {

	// constant velocity motion with dt of one frame
	motionMat := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})

	// only position is observed
	updateMat := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})

	return &KalmanFilter{
		stdPosition:    stdPosition,
		stdVelocity:    stdVelocity,
		stdMeasurement: stdMeasurement,
		motionMat:      motionMat,
		updateMat:      updateMat,
	}
}

// Initiate creates a new state from the first measurement with zero velocity
func (kf *KalmanFilter) Initiate(x, y float64) *PointState {

	std := []float64{
		2 * kf.stdPosition,
		2 * kf.stdPosition,
		10 * kf.stdVelocity,
		10 * kf.stdVelocity,
	}

	cov := mat.NewDense(4, 4, nil)

	for i, v := range std {
		cov.Set(i, i, v*v)
	}

	return &PointState{
		Mean:       [4]float64{x, y, 0, 0},
		Covariance: cov,
	}
}

// Predict advances the state by one frame
func (kf *KalmanFilter) Predict(s *PointState) {

	meanVec := mat.NewVecDense(4, s.Mean[:])
	next := mat.NewVecDense(4, nil)
	next.MulVec(kf.motionMat, meanVec)

	for i := 0; i < 4; i++ {
		s.Mean[i] = next.AtVec(i)
	}

	motionCov := mat.NewDense(4, 4, nil)
	std := []float64{kf.stdPosition, kf.stdPosition, kf.stdVelocity, kf.stdVelocity}

	for i, v := range std {
		motionCov.Set(i, i, v*v)
	}

	var cov mat.Dense
	cov.Mul(kf.motionMat, s.Covariance)
	cov.Mul(&cov, kf.motionMat.T())
	cov.Add(&cov, motionCov)

	s.Covariance = &cov
}

// Update corrects the state with a measured position
func (kf *KalmanFilter) Update(s *PointState, x, y float64) error {

	projectedMean, projectedCov := kf.project(s)

	chol := mat.Cholesky{}

	if ok := chol.Factorize(projectedCov); !ok {
		return errors.New("failed to factorize projected covariance")
	}

	// kalman gain K = P H^T S^-1, solved as S K^T = H P
	var hp mat.Dense
	hp.Mul(kf.updateMat, s.Covariance)

	var gainT mat.Dense

	if err := chol.SolveTo(&gainT, &hp); err != nil {
		return fmt.Errorf("failed to compute kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(2, []float64{
		x - projectedMean[0],
		y - projectedMean[1],
	})

	delta := mat.NewVecDense(4, nil)
	delta.MulVec(gainT.T(), innovation)

	for i := 0; i < 4; i++ {
		s.Mean[i] += delta.AtVec(i)
	}

	// P = P - K S K^T
	var ks mat.Dense
	ks.Mul(gainT.T(), projectedCov)

	var kskt mat.Dense
	kskt.Mul(&ks, &gainT)

	var cov mat.Dense
	cov.Sub(s.Covariance, &kskt)

	s.Covariance = &cov

	return nil
}

// project maps the state into measurement space
func (kf *KalmanFilter) project(s *PointState) ([2]float64, *mat.SymDense) {

	var hp mat.Dense
	hp.Mul(kf.updateMat, s.Covariance)

	var hpht mat.Dense
	hpht.Mul(&hp, kf.updateMat.T())

	r := kf.stdMeasurement * kf.stdMeasurement

	projectedCov := mat.NewSymDense(2, nil)

	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			v := (hpht.At(i, j) + hpht.At(j, i)) / 2

			if i == j {
				v += r
			}

			projectedCov.SetSym(i, j, v)
		}
	}

	return [2]float64{s.Mean[0], s.Mean[1]}, projectedCov
}
