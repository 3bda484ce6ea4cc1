package controller

import (
	"context"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	untrackv1alpha1 "github.com/razvanmacovei/untrack-operator/api/v1alpha1"
	"github.com/razvanmacovei/untrack-operator/internal/metrics"
	"github.com/razvanmacovei/untrack-operator/internal/rulestore"
)

const (
	conditionReady = "Ready"

	reasonCompiled    = "Compiled"
	reasonInvalidRule = "InvalidRule"
)

// TrackerRuleReconciler reconciles a TrackerRule object into the gateway's
// rule store.
type TrackerRuleReconciler struct {
	client.Client
	Scheme    *runtime.Scheme
	RuleStore *rulestore.Store
	Recorder  record.EventRecorder
}

// +kubebuilder:rbac:groups=untrack.io,resources=trackerrules,verbs=get;list;watch
// +kubebuilder:rbac:groups=untrack.io,resources=trackerrules/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;list;watch;create;update;patch;delete

func (r *TrackerRuleReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	var tr untrackv1alpha1.TrackerRule
	if err := r.Get(ctx, req.NamespacedName, &tr); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("TrackerRule resource not found, removing its rules")
			r.forget(logger, req.Namespace, req.Name)
			return ctrl.Result{}, nil
		}
		logger.Error(err, "unable to fetch TrackerRule")
		return ctrl.Result{}, err
	}

	if !tr.DeletionTimestamp.IsZero() {
		r.forget(logger, tr.Namespace, tr.Name)
		return ctrl.Result{}, nil
	}

	rules, err := compileRules(tr.Spec.Rules)
	if err == nil {
		err = r.RuleStore.Set(&rulestore.RuleSet{
			Name:      tr.Name,
			Namespace: tr.Namespace,
			Rules:     rules,
		})
	}
	if err != nil {
		// An invalid spec contributes no rules; it is not retried until it changes.
		logger.Error(err, "invalid tracker rules")
		r.forget(logger, tr.Namespace, tr.Name)
		r.event(&tr, corev1.EventTypeWarning, reasonInvalidRule, err.Error())
		r.setCondition(&tr, metav1.ConditionFalse, reasonInvalidRule, err.Error())
		r.updateStatus(ctx, &tr, false, 0)
		return ctrl.Result{}, nil
	}

	r.recordStore()

	r.event(&tr, corev1.EventTypeNormal, reasonCompiled, "tracker rules are active in the gateway")
	r.setCondition(&tr, metav1.ConditionTrue, reasonCompiled, "Rules are compiled and active")
	r.updateStatus(ctx, &tr, true, len(rules))

	logger.Info("reconciliation complete",
		"activeRules", len(rules),
		"registryRules", r.RuleStore.Len(),
	)
	return ctrl.Result{}, nil
}

// forget removes a resource's rules from the store.
func (r *TrackerRuleReconciler) forget(logger logr.Logger, namespace, name string) {
	if !r.RuleStore.Delete(namespace, name) {
		return
	}
	r.recordStore()
	logger.Info("tracker rules removed", "registryRules", r.RuleStore.Len())
}

func (r *TrackerRuleReconciler) recordStore() {
	metrics.RuleStoreUpdatesTotal.Inc()
	metrics.ActiveRules.Set(float64(r.RuleStore.Len()))
	metrics.RuleSets.Set(float64(r.RuleStore.Count()))
}

func (r *TrackerRuleReconciler) event(tr *untrackv1alpha1.TrackerRule, eventType, reason, message string) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.Event(tr, eventType, reason, message)
}

func (r *TrackerRuleReconciler) setCondition(tr *untrackv1alpha1.TrackerRule, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&tr.Status.Conditions, metav1.Condition{
		Type:               conditionReady,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: tr.Generation,
		LastTransitionTime: metav1.Now(),
	})
}

func (r *TrackerRuleReconciler) updateStatus(ctx context.Context, tr *untrackv1alpha1.TrackerRule, ready bool, activeRules int) {
	tr.Status.Ready = ready
	tr.Status.ActiveRules = activeRules

	if err := r.Status().Update(ctx, tr); err != nil {
		log.FromContext(ctx).Error(err, "failed to update TrackerRule status")
	}
}

// SetupWithManager sets up the controller with the Manager.
func (r *TrackerRuleReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&untrackv1alpha1.TrackerRule{}, builder.WithPredicates(predicate.GenerationChangedPredicate{})).
		Complete(r)
}
