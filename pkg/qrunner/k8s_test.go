package qrunner

import (
	"strings"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"
)

func TestBuildDeployment(t *testing.T) {
	cfg := DefaultContainerConfig("ghcr.io/acme/runtime:1")
	cfg.Resources = ResourcesFor(2, 4096)
	dep, err := BuildDeployment(ClusterDeployment{
		Name:        "calc-web",
		PhotonID:    "calc-1a2b",
		PhotonName:  "calc",
		ArtifactURL: "https://s3.local/photons/calc-1a2b.photon?sig=x",
		Port:        8080,
		Env:         map[string]string{"Z": "26", "A": "1"},
		Secrets:     map[string]string{"HF_TOKEN": "hf"},
		Mounts:      []Mount{{Source: "/models/llama", Destination: "/mnt/models"}},
		MinReplicas: 2,
		Config:      cfg,
	})
	if err != nil {
		t.Fatalf("BuildDeployment failed: %v", err)
	}

	if *dep.Spec.Replicas != 2 {
		t.Errorf("expected 2 replicas, got %d", *dep.Spec.Replicas)
	}
	if dep.Spec.Selector.MatchLabels[DeploymentLabel] != "calc-web" {
		t.Errorf("unexpected selector: %v", dep.Spec.Selector)
	}
	if dep.Labels[PhotonIDLabel] != "calc-1a2b" {
		t.Errorf("unexpected labels: %v", dep.Labels)
	}

	pod := dep.Spec.Template.Spec
	if len(pod.InitContainers) != 1 || pod.InitContainers[0].Env[0].Value != "https://s3.local/photons/calc-1a2b.photon?sig=x" {
		t.Errorf("unexpected init container: %+v", pod.InitContainers)
	}
	main := pod.Containers[0]
	if main.Env[0].Name != "A" || main.Env[1].Name != "Z" {
		t.Errorf("expected sorted env, got %+v", main.Env)
	}
	secret := main.Env[2]
	if secret.Name != "HF_TOKEN" || secret.ValueFrom.SecretKeyRef.Key != "hf" || secret.ValueFrom.SecretKeyRef.Name != SecretName {
		t.Errorf("unexpected secret env: %+v", secret)
	}
	if got := main.Resources.Limits[corev1.ResourceCPU]; got.String() != "2" {
		t.Errorf("unexpected cpu limit: %s", got.String())
	}
	if got := main.Resources.Requests[corev1.ResourceMemory]; got.String() != "4Gi" {
		t.Errorf("unexpected memory request: %s", got.String())
	}
	if len(main.VolumeMounts) != 2 || main.VolumeMounts[1].SubPath != "models/llama" {
		t.Errorf("unexpected volume mounts: %+v", main.VolumeMounts)
	}
	if len(pod.Volumes) != 2 || pod.Volumes[1].PersistentVolumeClaim.ClaimName != StorageClaimName {
		t.Errorf("unexpected volumes: %+v", pod.Volumes)
	}
	if main.ReadinessProbe.HTTPGet.Path != "/healthz" {
		t.Errorf("expected readiness on /healthz")
	}
	wantTail := `-p 8080 --inherit-env 'A' --inherit-env 'HF_TOKEN' --inherit-env 'Z'`
	if !strings.HasSuffix(main.Command[2], wantTail) {
		t.Errorf("container env not forwarded to the inner run: %s", main.Command[2])
	}
}

func TestBuildDeploymentDefaults(t *testing.T) {
	dep, err := BuildDeployment(ClusterDeployment{Name: "x", PhotonID: "x-1", Port: 8080, Config: ContainerConfig{Image: "img"}})
	if err != nil {
		t.Fatalf("BuildDeployment failed: %v", err)
	}
	if *dep.Spec.Replicas != 1 {
		t.Errorf("expected at least one replica, got %d", *dep.Spec.Replicas)
	}
	if len(dep.Spec.Template.Spec.Volumes) != 1 {
		t.Errorf("expected only the artifact volume")
	}

	if _, err := BuildDeployment(ClusterDeployment{Name: "x"}); err == nil {
		t.Error("expected missing image to fail")
	}
}

func TestDeploymentStatus(t *testing.T) {
	cases := []struct {
		name string
		dep  appsv1.Deployment
		want LaunchStatus
	}{
		{"pending", appsv1.Deployment{Spec: appsv1.DeploymentSpec{Replicas: ptr.To(int32(1))}}, LaunchStatusPending},
		{"running", appsv1.Deployment{Spec: appsv1.DeploymentSpec{Replicas: ptr.To(int32(1))}, Status: appsv1.DeploymentStatus{ReadyReplicas: 1}}, LaunchStatusRunning},
		{"scaled down", appsv1.Deployment{Spec: appsv1.DeploymentSpec{Replicas: ptr.To(int32(0))}}, LaunchStatusStopped},
		{"failed", appsv1.Deployment{Status: appsv1.DeploymentStatus{Conditions: []appsv1.DeploymentCondition{
			{Type: appsv1.DeploymentProgressing, Status: corev1.ConditionFalse},
		}}}, LaunchStatusFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DeploymentStatus(&c.dep); got != c.want {
				t.Errorf("expected %s, got %s", c.want, got)
			}
		})
	}
}
