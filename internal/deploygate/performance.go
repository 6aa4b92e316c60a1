package deploygate

import "quant-model-lab/internal/domain"

// ValidatePerformanceMetrics checks evaluation metrics against the
// configured minimums and flags overfitting and leakage signals.
func (g *Gate) ValidatePerformanceMetrics(m domain.PerformanceMetrics) *CheckResult {
	t := g.thresholds
	r := newCheckResult()
	r.set("accuracy", m.Accuracy)
	r.set("precision", m.Precision)
	r.set("recall", m.Recall)
	r.set("f1_score", m.F1Score)
	r.set("sharpe_ratio", m.SharpeRatio)

	checkMin := func(name string, value, min float64) {
		if value < min {
			r.fail("%s %.4f below minimum %.4f", name, value, min)
			return
		}
		if value < min+t.MarginalBand {
			r.warn("%s %.4f only marginally above minimum %.4f", name, value, min)
		}
	}

	checkMin("accuracy", m.Accuracy, t.MinAccuracy)
	checkMin("precision", m.Precision, t.MinPrecision)
	checkMin("recall", m.Recall, t.MinRecall)
	checkMin("f1_score", m.F1Score, t.MinF1)
	checkMin("sharpe_ratio", m.SharpeRatio, t.MinSharpe)

	if m.TrainLoss < 0 {
		r.fail("train_loss %.4f is negative", m.TrainLoss)
	}
	if m.ValidationLoss < 0 {
		r.fail("validation_loss %.4f is negative", m.ValidationLoss)
	}

	// Overfitting signals are advisory: training quality may legitimately
	// exceed validation quality by a modest margin.
	if gap := m.TrainAccuracy - m.ValidationAccuracy; gap > t.MaxOverfitGap {
		r.warn("train/validation accuracy gap %.4f exceeds %.4f (overfitting signal)",
			gap, t.MaxOverfitGap)
	}
	if m.TrainLoss > 0 && m.ValidationLoss > m.TrainLoss*t.MaxLossRatio {
		r.warn("validation_loss %.4f is more than %.1fx train_loss %.4f",
			m.ValidationLoss, t.MaxLossRatio, m.TrainLoss)
	}
	if m.SharpeRatio > t.SuspiciousSharpe {
		r.warn("sharpe_ratio %.2f exceeds %.2f (possible data leakage)",
			m.SharpeRatio, t.SuspiciousSharpe)
	}

	return r
}
